package cmd

import (
	"context"
	"errors"

	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

// Exit codes of the CLI, one per failure kind
const (
	ExitFailure   = 1
	ExitNetwork   = 2
	ExitIO        = 3
	ExitDecode    = 4
	ExitConfig    = 5
	ExitCancelled = 130
)

func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return ExitCancelled
	}
	switch updates_api.KindOf(err) {
	case updates_api.KindNetwork:
		return ExitNetwork
	case updates_api.KindIO:
		return ExitIO
	case updates_api.KindDecode:
		return ExitDecode
	case updates_api.KindConfig:
		return ExitConfig
	default:
		return ExitFailure
	}
}
