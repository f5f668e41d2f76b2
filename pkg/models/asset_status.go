package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/manifest"
)

// AssetModel drives the model-asset preflight: it reads the manifest,
// resolves it against the configured release catalog and keeps the local
// models directory in sync.
type AssetModel struct {
	app    *config.AppConfig
	logger *logrus.Entry
}

func NewAssetModel(app *config.AppConfig, logger *logrus.Logger) *AssetModel {
	if app == nil {
		app = config.GetConfig()
	}

	return &AssetModel{
		app:    app,
		logger: logger.WithField("model", "asset"),
	}
}

// loadManifest parses the manifest file and builds the catalog from config.
func (m *AssetModel) loadManifest() (*manifest.Manifest, *manifest.Catalog, error) {
	mf, err := manifest.ParseFile(m.app.ModelAssets.ManifestPath)
	if err != nil {
		return nil, nil, err
	}

	cat := manifest.NewCatalog()
	for _, p := range m.app.ModelAssets.Catalog {
		for _, rel := range p.Releases {
			if err := cat.AddRelease(p.Name, rel.Version, rel.Url, rel.Sha256, rel.Size); err != nil {
				return nil, nil, fmt.Errorf("catalog entry %s: %w", p.Name, err)
			}
		}
	}

	return mf, cat, nil
}

type AssetPrerequisiteInfo struct {
	Kind     string `json:"kind"`
	Name     string `json:"name,omitempty"`
	Spec     string `json:"spec,omitempty"`
	Platform string `json:"platform,omitempty"`
	Command  string `json:"command,omitempty"`
}

type AssetRequirementStatus struct {
	Name            string `json:"name"`
	Specs           string `json:"specs,omitempty"`
	ResolvedVersion string `json:"resolved_version,omitempty"`
	ArtifactFile    string `json:"artifact_file,omitempty"`
	Present         bool   `json:"present"`
	SizeBytes       int64  `json:"size_bytes,omitempty"`
	ChecksumOk      *bool  `json:"checksum_ok,omitempty"`
	Note            string `json:"note,omitempty"`
}

type AssetsStatusResult struct {
	ManifestPath  string                    `json:"manifest_path"`
	ModelsDir     string                    `json:"models_dir"`
	Installable   bool                      `json:"installable"`
	Problems      string                    `json:"problems,omitempty"`
	Prerequisites []*AssetPrerequisiteInfo  `json:"prerequisites,omitempty"`
	Requirements  []*AssetRequirementStatus `json:"requirements"`
}

// GetAssetsStatus reports, per manifest requirement, the resolved version
// and whether its artifact is present and intact on disk. Prerequisites
// from the manifest comments come along as guidance; nothing enforces them.
func (m *AssetModel) GetAssetsStatus() (*AssetsStatusResult, error) {
	mf, cat, err := m.loadManifest()
	if err != nil {
		return nil, err
	}

	res := &AssetsStatusResult{
		ManifestPath: mf.Path,
		ModelsDir:    m.app.ModelAssets.ModelsDir,
		Installable:  true,
	}

	for _, p := range mf.Prerequisites {
		res.Prerequisites = append(res.Prerequisites, &AssetPrerequisiteInfo{
			Kind:     string(p.Kind),
			Name:     p.Name,
			Spec:     p.Spec,
			Platform: p.Platform,
			Command:  p.Command,
		})
		m.logger.Infof("manifest prerequisite (%s): %s", p.Kind, p.Raw)
	}

	resolved, err := cat.Resolve(mf)
	if err != nil {
		res.Installable = false
		res.Problems = err.Error()
	}

	for _, item := range resolved {
		st := &AssetRequirementStatus{
			Name:  item.Name,
			Specs: requirementSpecs(item.Requirements),
		}
		if item.Version != nil {
			st.ResolvedVersion = item.Version.String()
		}
		if item.Release == nil {
			st.Note = "no artifact in catalog"
			res.Requirements = append(res.Requirements, st)
			continue
		}

		st.ArtifactFile = artifactFileName(item.Name, item.Release)
		file := filepath.Join(m.app.ModelAssets.ModelsDir, st.ArtifactFile)
		fi, err := os.Stat(file)
		if err != nil {
			res.Requirements = append(res.Requirements, st)
			continue
		}

		st.Present = true
		st.SizeBytes = fi.Size()
		if item.Release.Sha256 != "" {
			ok, err := verifyFileChecksum(file, item.Release.Sha256)
			if err != nil {
				st.Note = err.Error()
			} else {
				st.ChecksumOk = &ok
				if !ok {
					st.Note = "checksum mismatch, re-sync required"
				}
			}
		}
		res.Requirements = append(res.Requirements, st)
	}

	return res, nil
}

func requirementSpecs(reqs []*manifest.Requirement) string {
	var specs []string
	for _, r := range reqs {
		specs = append(specs, r.RawSpec)
	}
	return strings.Join(specs, "; ")
}

// artifactFileName derives the local file name from the release URL, so a
// re-download always lands on the same path.
func artifactFileName(name string, rel *manifest.Release) string {
	if u, err := url.Parse(rel.Url); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return fmt.Sprintf("%s-%s.bin", name, rel.Version)
}

func verifyFileChecksum(file, expected string) (bool, error) {
	f, err := os.Open(file)
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}

	return strings.EqualFold(hex.EncodeToString(h.Sum(nil)), expected), nil
}
