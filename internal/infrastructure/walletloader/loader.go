package walletloader

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"portfolio_bridge/internal/app/port"

	"github.com/ethereum/go-ethereum/common"
)

// WatchListLoader reads the EVM addresses whose native balances seed the holdings at startup.
// One address per line; blank lines and lines starting with # are ignored.
type WatchListLoader struct {
	filePath string
	logger   port.Logger
}

// NewWatchListLoader creates a loader for filePath.
func NewWatchListLoader(filePath string, logger port.Logger) *WatchListLoader {
	return &WatchListLoader{filePath: filePath, logger: logger}
}

// Addresses returns the checksummed, deduplicated addresses of the watch list.
// A missing file yields an empty list.
func (l *WatchListLoader) Addresses() ([]string, error) {
	if l.filePath == "" {
		return nil, nil
	}
	file, err := os.Open(l.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Debug("Watch list not found, skipping", "path", l.filePath)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open watch list %s: %w", l.filePath, err)
	}
	defer file.Close()

	var (
		addresses []string
		seen      = make(map[common.Address]struct{})
		lineNum   int
	)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !common.IsHexAddress(line) {
			l.logger.Warn("Skipping invalid wallet address", "path", l.filePath, "line", lineNum, "address", line)
			continue
		}
		addr := common.HexToAddress(line)
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		addresses = append(addresses, addr.Hex())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning watch list %s: %w", l.filePath, err)
	}

	l.logger.Info("Watch list loaded", "count", len(addresses), "path", l.filePath)
	return addresses, nil
}
