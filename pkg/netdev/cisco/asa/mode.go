package asa

import (
	"context"
	"strings"

	"github.com/sshcollectorpro/netdev/pkg/netdev"
)

const (
	showModeCommand = "show mode"
	multipleMarker  = "multiple"
)

// CheckMultipleMode 发送 show mode，输出包含 multiple 即为多上下文模式
func CheckMultipleMode(ctx context.Context, exec netdev.CommandExecutor) (bool, error) {
	out, err := exec.SendCommand(ctx, showModeCommand)
	if err != nil {
		return false, err
	}
	return strings.Contains(out, multipleMarker), nil
}
