package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/voxlive/voxlive-server/pkg/dbmodels"
	"github.com/voxlive/voxlive-server/pkg/helpers"
)

type FetchArtifactsReq struct {
	SessionIds []string `json:"session_ids"`
	Type       string   `json:"type,omitempty"`
	From       uint64   `json:"from"`
	Limit      uint64   `json:"limit"`
	OrderBy    string   `json:"order_by"`
}

type ArtifactInfo struct {
	ArtifactId string  `json:"artifact_id"`
	SessionId  string  `json:"session_id"`
	Type       string  `json:"type"`
	FileSize   int64   `json:"file_size"`
	FileSizeMB float64 `json:"file_size_mb"`
	Metadata   string  `json:"metadata,omitempty"`
	Created    string  `json:"created"`
}

type FetchArtifactsResult struct {
	TotalArtifacts int64           `json:"total_artifacts"`
	From           uint64          `json:"from"`
	Limit          uint64          `json:"limit"`
	OrderBy        string          `json:"order_by"`
	ArtifactsList  []*ArtifactInfo `json:"artifacts_list"`
}

// FetchArtifacts lists artifacts, optionally filtered by session ids and
// type, paginated the same way past sessions are.
func (m *ArtifactModel) FetchArtifacts(r *FetchArtifactsReq) (*FetchArtifactsResult, error) {
	if r.Limit == 0 {
		r.Limit = 20
	} else if r.Limit > 100 {
		r.Limit = 100
	}
	if r.OrderBy == "" {
		r.OrderBy = "DESC"
	}

	var artifactType *dbmodels.ArtifactType
	if r.Type != "" {
		t := dbmodels.ArtifactType(strings.ToUpper(r.Type))
		artifactType = &t
	}

	artifacts, total, err := m.ds.GetArtifacts(r.SessionIds, artifactType, r.From, r.Limit, &r.OrderBy)
	if err != nil {
		return nil, err
	}

	list := make([]*ArtifactInfo, 0, len(artifacts))
	for _, a := range artifacts {
		list = append(list, artifactInfoFromDb(a))
	}

	return &FetchArtifactsResult{
		TotalArtifacts: total,
		From:           r.From,
		Limit:          r.Limit,
		OrderBy:        r.OrderBy,
		ArtifactsList:  list,
	}, nil
}

type ArtifactDetailsResult struct {
	Artifact    *ArtifactInfo    `json:"artifact"`
	SessionInfo *PastSessionInfo `json:"session_info,omitempty"`
}

// GetArtifactDetails returns a single artifact together with the session
// it belongs to.
func (m *ArtifactModel) GetArtifactDetails(artifactId string) (*ArtifactDetailsResult, error) {
	artifact, err := m.ds.GetSessionArtifactByArtifactID(artifactId)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, fmt.Errorf("artifact not found with ID: %s", artifactId)
	}

	res := &ArtifactDetailsResult{
		Artifact: artifactInfoFromDb(artifact),
	}

	sessionInfo, err := m.ds.GetSessionInfoByTableId(artifact.SessionTableID)
	if err != nil {
		return nil, err
	}
	if sessionInfo != nil {
		res.SessionInfo = &PastSessionInfo{
			SessionId:   sessionInfo.SessionId,
			Sid:         sessionInfo.Sid,
			Title:       sessionInfo.Title,
			ServiceName: sessionInfo.ServiceName,
			Provider:    sessionInfo.Provider,
			Lang:        sessionInfo.Lang,
			Created:     sessionInfo.Created.Format("2006-01-02 15:04:05"),
			Ended:       sessionInfo.Ended.Format("2006-01-02 15:04:05"),
		}
	}

	return res, nil
}

// GetArtifactDownloadToken creates a short-lived token whose subject is the
// artifact's relative file path. The public download route swaps it for the
// file without any further auth.
func (m *ArtifactModel) GetArtifactDownloadToken(artifactId string) (string, error) {
	artifact, err := m.ds.GetSessionArtifactByArtifactID(artifactId)
	if err != nil {
		return "", err
	}
	if artifact == nil {
		return "", fmt.Errorf("artifact not found with ID: %s", artifactId)
	}
	if artifact.FilePath == "" {
		return "", errors.New("this artifact has no file to download")
	}

	return m.generateToken(artifact.FilePath)
}

func (m *ArtifactModel) generateToken(filePath string) (string, error) {
	sig, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte(m.app.Client.Secret)}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", err
	}

	cl := jwt.Claims{
		Issuer:    m.app.Client.ApiKey,
		NotBefore: jwt.NewNumericDate(time.Now().UTC()),
		Expiry:    jwt.NewNumericDate(time.Now().UTC().Add(*m.app.Session.ArtifactTokenValidity)),
		Subject:   filePath,
	}

	return jwt.Signed(sig).Claims(cl).Serialize()
}

// VerifyArtifactDownloadToken validates a download token and resolves it to
// an absolute path inside the artifact store. Anything pointing outside the
// store is rejected.
func (m *ArtifactModel) VerifyArtifactDownloadToken(token string) (string, error) {
	tok, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return "", err
	}

	out := jwt.Claims{}
	if err = tok.Claims([]byte(m.app.Client.Secret), &out); err != nil {
		return "", err
	}
	if err = out.Validate(jwt.Expected{
		Issuer: m.app.Client.ApiKey,
		Time:   time.Now().UTC(),
	}); err != nil {
		return "", err
	}

	storeRoot := filepath.Clean(*m.app.Session.ArtifactsStorePath)
	file := filepath.Clean(filepath.Join(storeRoot, out.Subject))
	if !strings.HasPrefix(file, storeRoot+string(os.PathSeparator)) {
		return "", errors.New("invalid artifact file path")
	}

	if _, err := os.Lstat(file); err != nil {
		return "", errors.New("artifact file does not exist")
	}

	return file, nil
}

// DeleteArtifact removes the artifact file and its DB row. The DB layer
// refuses types that must be kept.
func (m *ArtifactModel) DeleteArtifact(artifactId string) error {
	artifact, err := m.ds.GetSessionArtifactByArtifactID(artifactId)
	if err != nil {
		return err
	}
	if artifact == nil {
		return fmt.Errorf("artifact not found with ID: %s", artifactId)
	}
	if !m.ds.IsAllowToDeleteArtifact(artifact.Type) {
		return fmt.Errorf("deleting '%s' type of artifact is not allowed", artifact.Type.ToString())
	}

	if artifact.FilePath != "" {
		file := filepath.Join(*m.app.Session.ArtifactsStorePath, artifact.FilePath)
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			m.logger.WithError(err).Errorln("error deleting artifact file:", file)
		}
	}

	_, err = m.ds.DeleteArtifactByArtifactId(artifactId)
	return err
}

func artifactInfoFromDb(a *dbmodels.SessionArtifact) *ArtifactInfo {
	return &ArtifactInfo{
		ArtifactId: a.ArtifactId,
		SessionId:  a.SessionId,
		Type:       a.Type.ToString(),
		FileSize:   a.FileSize,
		FileSizeMB: helpers.ToFixed(float64(a.FileSize)/1000000, 2),
		Metadata:   a.Metadata,
		Created:    a.Created.Format("2006-01-02 15:04:05"),
	}
}
