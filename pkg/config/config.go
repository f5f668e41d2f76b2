package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var dbTablePrefix string

type AppConfig struct {
	RDS       *redis.Client
	DB        *gorm.DB
	Logger    *logrus.Logger
	NatsConn  *nats.Conn
	JetStream jetstream.JetStream

	RootWorkingDir string
	Client         ClientInfo         `yaml:"client"`
	LogSettings    LogSettings        `yaml:"log_settings"`
	RedisInfo      RedisInfo          `yaml:"redis_info"`
	DatabaseInfo   DatabaseInfo       `yaml:"database_info"`
	NatsInfo       NatsInfo           `yaml:"nats_info"`
	Capture        CaptureSettings    `yaml:"capture"`
	Recognizer     RecognizerSettings `yaml:"recognizer"`
	Speech         SpeechConfig       `yaml:"speech"`
	ModelAssets    ModelAssetsInfo    `yaml:"model_assets"`
	Session        SessionSettings    `yaml:"session"`
}

type ClientInfo struct {
	Port           int            `yaml:"port"`
	Debug          bool           `yaml:"debug"`
	Path           string         `yaml:"path"`
	ApiKey         string         `yaml:"api_key"`
	Secret         string         `yaml:"secret"`
	TokenValidity  *time.Duration `yaml:"token_validity"`
	WebhookConf    WebhookConf    `yaml:"webhook_conf"`
	PrometheusConf PrometheusConf `yaml:"prometheus"`
	ProxyHeader    string         `yaml:"proxy_header"`
}

type WebhookConf struct {
	Enable              bool   `yaml:"enable"`
	Url                 string `yaml:"url,omitempty"`
	EnableForPerSession bool   `yaml:"enable_for_per_session"`
}

type PrometheusConf struct {
	Enable      bool   `yaml:"enable"`
	MetricsPath string `yaml:"metrics_path"`
}

type LogSettings struct {
	LogFile    string  `yaml:"log_file"`
	MaxSize    int     `yaml:"max_size"`
	MaxBackups int     `yaml:"max_backups"`
	MaxAge     int     `yaml:"max_age"`
	LogLevel   *string `yaml:"log_level"`
}

type DatabaseInfo struct {
	DriverName      string          `yaml:"driver_name"`
	Host            string          `yaml:"host"`
	Port            int32           `yaml:"port"`
	Username        string          `yaml:"username"`
	Password        string          `yaml:"password"`
	DBName          string          `yaml:"db"`
	Prefix          string          `yaml:"prefix"`
	Charset         *string         `yaml:"charset"`
	Loc             *string         `yaml:"loc"`
	ConnMaxLifetime *time.Duration  `yaml:"conn_max_lifetime"`
	MaxOpenConns    *int            `yaml:"max_open_conns"`
	Replicas        []ReplicaDBInfo `yaml:"replicas"`
}

// ReplicaDBInfo holds connection details for a read replica database.
type ReplicaDBInfo struct {
	Host     string `yaml:"host"`
	Port     int32  `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RedisInfo struct {
	Host              string   `yaml:"host"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	DBName            int      `yaml:"db"`
	UseTLS            bool     `yaml:"use_tls"`
	MasterName        string   `yaml:"sentinel_master_name"`
	SentinelUsername  string   `yaml:"sentinel_username"`
	SentinelPassword  string   `yaml:"sentinel_password"`
	SentinelAddresses []string `yaml:"sentinel_addresses"`
}

type NatsInfo struct {
	NatsUrls    []string     `yaml:"nats_urls"`
	User        string       `yaml:"user"`
	Password    string       `yaml:"password"`
	Nkey        *string      `yaml:"nkey"`
	NumReplicas int          `yaml:"num_replicas"`
	Subjects    NatsSubjects `yaml:"subjects"`
}

type NatsSubjects struct {
	AgentTask      string `yaml:"agent_task"`
	LiveResult     string `yaml:"live_result"`
	WebhookCleanup string `yaml:"webhook_cleanup"`
}

// CaptureSettings describes the PCM audio this server accepts on the ingest
// socket and the capture sources clients may declare.
type CaptureSettings struct {
	SampleRate    int             `yaml:"sample_rate"`
	Channels      int             `yaml:"channels"`
	FrameDuration *time.Duration  `yaml:"frame_duration"`
	DefaultSource string          `yaml:"default_source"`
	Sources       []CaptureSource `yaml:"sources"`
}

// CaptureSource is one named input a client may capture from. A source with
// zero input channels exists (e.g. a loopback or output-only device) but can
// never be selected for capture.
type CaptureSource struct {
	Name             string `yaml:"name"`
	MaxInputChannels int    `yaml:"max_input_channels"`
}

// RecognizerSettings carries the energy based phrase segmentation knobs.
// Zero values are replaced with the defaults in New().
type RecognizerSettings struct {
	EnergyThreshold     float64        `yaml:"energy_threshold"`
	DynamicEnergy       *bool          `yaml:"dynamic_energy"`
	DynamicDamping      float64        `yaml:"dynamic_damping"`
	DynamicRatio        float64        `yaml:"dynamic_ratio"`
	PauseThreshold      *time.Duration `yaml:"pause_threshold"`
	PhraseThreshold     *time.Duration `yaml:"phrase_threshold"`
	NonSpeakingDuration *time.Duration `yaml:"non_speaking_duration"`
	MaxPhraseDuration   *time.Duration `yaml:"max_phrase_duration"`
	CalibrationDuration *time.Duration `yaml:"calibration_duration"`
}

// ModelAssetsInfo configures the model manifest and the release catalog the
// manifest is resolved against.
type ModelAssetsInfo struct {
	ManifestPath        string           `yaml:"manifest_path"`
	ModelsDir           string           `yaml:"models_dir"`
	SyncOnBoot          bool             `yaml:"sync_on_boot"`
	DownloadConcurrency int              `yaml:"download_concurrency"`
	Catalog             []CatalogPackage `yaml:"catalog"`
}

type CatalogPackage struct {
	Name     string           `yaml:"name"`
	Releases []CatalogRelease `yaml:"releases"`
}

type CatalogRelease struct {
	Version string `yaml:"version"`
	Url     string `yaml:"url"`
	Sha256  string `yaml:"sha256"`
	Size    int64  `yaml:"size"`
}

type SessionSettings struct {
	MaxDuration           *time.Duration `yaml:"max_duration"`
	ArtifactsStorePath    *string        `yaml:"artifacts_store_path"`
	ArtifactTokenValidity *time.Duration `yaml:"artifact_token_validity"`
	// ArtifactRetention deletes artifact files and rows older than this.
	// nil disables retention entirely.
	ArtifactRetention  *time.Duration `yaml:"artifact_retention"`
	TranscriptChunkTTL *time.Duration `yaml:"transcript_chunk_ttl"`
	StopWord           *string        `yaml:"stop_word"`
}

var appCnf *AppConfig

// New stores the supplied config for global usage and fills in defaults.
func New(a *AppConfig) error {
	// default validation of token is 10 minutes
	if a.Client.TokenValidity == nil || *a.Client.TokenValidity < 0 {
		validity := time.Minute * 10
		a.Client.TokenValidity = &validity
	}

	if a.Session.ArtifactsStorePath == nil {
		p := "./artifacts"
		a.Session.ArtifactsStorePath = &p
	}
	if a.Session.ArtifactTokenValidity == nil {
		d := time.Minute * 30
		a.Session.ArtifactTokenValidity = &d
	}
	if a.Session.TranscriptChunkTTL == nil {
		d := time.Hour * 6
		a.Session.TranscriptChunkTTL = &d
	}
	if a.Session.StopWord == nil {
		w := "stop"
		a.Session.StopWord = &w
	}

	p := *a.Session.ArtifactsStorePath
	if strings.HasPrefix(p, "./") {
		p = filepath.Join(a.RootWorkingDir, p)
		a.Session.ArtifactsStorePath = &p
	}
	if _, err := os.Stat(p); os.IsNotExist(err) {
		if err = os.MkdirAll(p, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create artifacts directory %s: %w", p, err)
		}
	}

	if a.ModelAssets.ManifestPath == "" {
		a.ModelAssets.ManifestPath = "./models.txt"
	}
	if a.ModelAssets.ModelsDir == "" {
		a.ModelAssets.ModelsDir = "./models"
	}
	if a.ModelAssets.DownloadConcurrency < 1 {
		a.ModelAssets.DownloadConcurrency = 2
	}
	if strings.HasPrefix(a.ModelAssets.ManifestPath, "./") {
		a.ModelAssets.ManifestPath = filepath.Join(a.RootWorkingDir, a.ModelAssets.ManifestPath)
	}
	if strings.HasPrefix(a.ModelAssets.ModelsDir, "./") {
		a.ModelAssets.ModelsDir = filepath.Join(a.RootWorkingDir, a.ModelAssets.ModelsDir)
	}
	if _, err := os.Stat(a.ModelAssets.ModelsDir); os.IsNotExist(err) {
		if err = os.MkdirAll(a.ModelAssets.ModelsDir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create models directory %s: %w", a.ModelAssets.ModelsDir, err)
		}
	}

	setCaptureDefaults(&a.Capture)
	setRecognizerDefaults(&a.Recognizer)

	if a.NatsInfo.Subjects.AgentTask == "" {
		a.NatsInfo.Subjects.AgentTask = "vxl-stt-agent-tasks"
	}
	if a.NatsInfo.Subjects.LiveResult == "" {
		a.NatsInfo.Subjects.LiveResult = "vxl-stt-live"
	}
	if a.NatsInfo.Subjects.WebhookCleanup == "" {
		a.NatsInfo.Subjects.WebhookCleanup = "vxl-webhookCleanup"
	}

	if a.DatabaseInfo.Prefix != "" {
		dbTablePrefix = a.DatabaseInfo.Prefix
	}

	appCnf = a
	return nil
}

func setCaptureDefaults(c *CaptureSettings) {
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
	if c.FrameDuration == nil || *c.FrameDuration <= 0 {
		d := 30 * time.Millisecond
		c.FrameDuration = &d
	}
}

func setRecognizerDefaults(r *RecognizerSettings) {
	if r.EnergyThreshold == 0 {
		r.EnergyThreshold = 300
	}
	if r.DynamicEnergy == nil {
		dyn := true
		r.DynamicEnergy = &dyn
	}
	if r.DynamicDamping == 0 {
		r.DynamicDamping = 0.15
	}
	if r.DynamicRatio == 0 {
		r.DynamicRatio = 1.5
	}
	if r.PauseThreshold == nil || *r.PauseThreshold <= 0 {
		d := 800 * time.Millisecond
		r.PauseThreshold = &d
	}
	if r.PhraseThreshold == nil || *r.PhraseThreshold <= 0 {
		d := 300 * time.Millisecond
		r.PhraseThreshold = &d
	}
	if r.NonSpeakingDuration == nil || *r.NonSpeakingDuration <= 0 {
		d := 500 * time.Millisecond
		r.NonSpeakingDuration = &d
	}
	if r.CalibrationDuration == nil || *r.CalibrationDuration <= 0 {
		d := time.Second
		r.CalibrationDuration = &d
	}
}

// GetConfig returns the globally stored config. It will be nil before New was
// called.
func GetConfig() *AppConfig {
	return appCnf
}

func FormatDBTable(table string) string {
	if dbTablePrefix != "" {
		return dbTablePrefix + table
	}
	return table
}
