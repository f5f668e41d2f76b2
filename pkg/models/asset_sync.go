package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cavaliergopher/grab/v3"
	"github.com/voxlive/voxlive-server/pkg/manifest"
	"golang.org/x/sync/errgroup"
)

type AssetSyncItem struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	File    string `json:"file,omitempty"`
	Action  string `json:"action"`
	Error   string `json:"error,omitempty"`
}

type AssetsSyncResult struct {
	Downloaded int              `json:"downloaded"`
	Failed     int              `json:"failed"`
	Items      []*AssetSyncItem `json:"items"`
}

// SyncAssets downloads every resolvable artifact that is missing or fails
// its checksum. Downloads run concurrently up to the configured limit, land
// in a temp file first and move into place only after verification.
func (m *AssetModel) SyncAssets(ctx context.Context) (*AssetsSyncResult, error) {
	mf, cat, err := m.loadManifest()
	if err != nil {
		return nil, err
	}

	resolved, err := cat.Resolve(mf)
	if err != nil {
		// sync whatever resolved; the status endpoint reports the rest
		m.logger.WithError(err).Warnln("manifest is not fully installable, syncing the resolvable part")
	}

	res := new(AssetsSyncResult)
	var mu sync.Mutex
	add := func(item *AssetSyncItem) {
		mu.Lock()
		defer mu.Unlock()
		res.Items = append(res.Items, item)
		switch {
		case item.Error != "":
			res.Failed++
		case item.Action == "downloaded":
			res.Downloaded++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.app.ModelAssets.DownloadConcurrency)

	for _, item := range resolved {
		st := &AssetSyncItem{Name: item.Name}
		if item.Version != nil {
			st.Version = item.Version.String()
		}
		if item.Release == nil {
			st.Action = "skipped"
			st.Error = "no artifact in catalog"
			add(st)
			continue
		}
		st.File = artifactFileName(item.Name, item.Release)

		rel := item.Release
		g.Go(func() error {
			m.syncArtifact(gctx, rel, st)
			add(st)
			return nil
		})
	}

	// group errors are reported per item
	_ = g.Wait()

	return res, nil
}

func (m *AssetModel) syncArtifact(ctx context.Context, rel *manifest.Release, st *AssetSyncItem) {
	dest := filepath.Join(m.app.ModelAssets.ModelsDir, st.File)

	if _, err := os.Stat(dest); err == nil {
		if rel.Sha256 == "" {
			st.Action = "up-to-date"
			return
		}
		if ok, err := verifyFileChecksum(dest, rel.Sha256); err == nil && ok {
			st.Action = "up-to-date"
			return
		}
		m.logger.Warnf("artifact %s exists but fails its checksum, downloading again", st.File)
	}

	log := m.logger.WithField("artifact", st.File)
	log.Infof("downloading %s", rel.Url)

	tmp := dest + ".download"
	req, err := grab.NewRequest(tmp, rel.Url)
	if err != nil {
		st.Action = "failed"
		st.Error = err.Error()
		return
	}
	req = req.WithContext(ctx)
	req.NoResume = true
	if rel.Sha256 != "" {
		sum, err := hex.DecodeString(rel.Sha256)
		if err != nil {
			st.Action = "failed"
			st.Error = fmt.Sprintf("invalid sha256 in catalog: %s", err)
			return
		}
		req.SetChecksum(sha256.New(), sum, true)
	}

	resp := grab.DefaultClient.Do(req)
	if err := resp.Err(); err != nil {
		_ = os.Remove(tmp)
		st.Action = "failed"
		st.Error = err.Error()
		log.WithError(err).Errorln("download failed")
		return
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		st.Action = "failed"
		st.Error = err.Error()
		return
	}

	st.Action = "downloaded"
	log.Infoln("download completed")
}

// SyncOnBoot runs a sync once at startup when the config asks for it.
func (m *AssetModel) SyncOnBoot(ctx context.Context) {
	if !m.app.ModelAssets.SyncOnBoot {
		return
	}

	res, err := m.SyncAssets(ctx)
	if err != nil {
		m.logger.WithError(err).Errorln("model asset sync failed")
		return
	}

	m.logger.Infof("model asset sync finished, downloaded: %d, failed: %d, total: %d", res.Downloaded, res.Failed, len(res.Items))
}
