package types

import "github.com/segpull/segpull/internal/config"

// ConvertRuntimeConfig converts the app-level RuntimeConfig to the engine-level RuntimeConfig.
func ConvertRuntimeConfig(rc *config.RuntimeConfig) *RuntimeConfig {
	if rc == nil {
		return nil
	}
	return &RuntimeConfig{
		AgentBinary:     rc.AgentBinary,
		AgentTimeout:    rc.AgentTimeout,
		AgentNetRetries: rc.AgentNetRetries,
		Segments:        rc.Segments,
		ParallelRetries: rc.ParallelRetries,
		DisableRetry:    !rc.RetryEnabled,
		DisableVerify:   !rc.VerifyArchives,
		PollInterval:    rc.PollInterval,
		StopGrace:       rc.StopGrace,
		SpeedWindow:     rc.SpeedWindow,
	}
}
