package perception

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"droidcore/internal/domain"
)

// Trigger opens an attention session.
type Trigger interface {
	Trigger(source, target string) error
	Enabled() bool
}

type Config struct {
	Cooldown      time.Duration
	MinConfidence float64
	// Labels restricts which detections count. Empty accepts any label.
	Labels []string
}

func DefaultConfig() Config {
	return Config{Cooldown: 3 * time.Second, MinConfidence: 0.5}
}

// Detector turns raw detections into attention triggers.
type Detector struct {
	cooldown      time.Duration
	minConfidence float64
	labels        map[string]struct{}
	attention     Trigger
	logger        *slog.Logger

	mu          sync.Mutex
	enabled     bool
	lastTrigger time.Time
}

func NewDetector(cfg Config, attention Trigger, logger *slog.Logger) *Detector {
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	labels := make(map[string]struct{}, len(cfg.Labels))
	for _, l := range cfg.Labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			labels[l] = struct{}{}
		}
	}
	return &Detector{
		cooldown:      cfg.Cooldown,
		minConfidence: cfg.MinConfidence,
		labels:        labels,
		attention:     attention,
		logger:        logger,
		enabled:       true,
	}
}

// Handle reports whether det produced an attention trigger.
func (d *Detector) Handle(det domain.Detection) bool {
	label := strings.ToLower(strings.TrimSpace(det.Label))
	if label == "" {
		return false
	}
	if det.Confidence < d.minConfidence {
		return false
	}
	if len(d.labels) > 0 {
		if _, ok := d.labels[label]; !ok {
			return false
		}
	}
	if !d.attention.Enabled() {
		return false
	}

	d.mu.Lock()
	if !d.enabled {
		d.mu.Unlock()
		return false
	}
	now := time.Now()
	if !d.lastTrigger.IsZero() && now.Sub(d.lastTrigger) < d.cooldown {
		d.mu.Unlock()
		return false
	}
	d.lastTrigger = now
	d.mu.Unlock()

	source := det.Source
	if source == "" {
		source = "camera"
	}
	if err := d.attention.Trigger(source, label); err != nil {
		d.logger.Info("detection did not trigger attention", "source", source, "label", label, "error", err)
		return false
	}
	d.logger.Info("detection triggered attention", "source", source, "label", label, "confidence", det.Confidence)
	return true
}

func (d *Detector) Enable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = true
}

func (d *Detector) Disable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = false
}

func (d *Detector) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}
