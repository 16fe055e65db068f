package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
)

// TargetSeedFile is the on-disk shape of a target definition file.
type TargetSeedFile struct {
	URL          string `toml:"url"`
	Type         string `toml:"type"`
	AuthEndpoint string `toml:"auth_endpoint"`
	AuthUsername string `toml:"auth_username"`
}

// LoadTargetsFromFiles loads target seed definitions from TOML files in
// the configured directory and upserts any that are not already stored.
// Existing targets keep their learned state; the seed only fills gaps.
func LoadTargetsFromFiles(ctx context.Context, targetStorage interfaces.TargetStorage, targetsDir string, logger arbor.ILogger) error {
	if _, err := os.Stat(targetsDir); os.IsNotExist(err) {
		logger.Debug().Str("dir", targetsDir).Msg("Targets directory does not exist, skipping")
		return nil
	}

	logger.Info().Str("dir", targetsDir).Msg("Loading target definitions from files")

	entries, err := os.ReadDir(targetsDir)
	if err != nil {
		return fmt.Errorf("failed to read targets directory: %w", err)
	}

	loadedCount := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}

		filePath := filepath.Join(targetsDir, entry.Name())
		tomlBytes, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read target definition file")
			continue
		}

		var seed TargetSeedFile
		if err := toml.Unmarshal(tomlBytes, &seed); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse target definition TOML")
			continue
		}
		if seed.URL == "" {
			logger.Warn().Str("file", entry.Name()).Msg("Target definition missing url, skipping")
			continue
		}

		// Keep learned state for targets we already know
		if existing, err := targetStorage.GetTargetByURL(ctx, seed.URL); err == nil && existing != nil {
			continue
		} else if err != nil && !errors.Is(err, ErrTargetNotFound) {
			return fmt.Errorf("failed to check existing target: %w", err)
		}

		targetType := models.TargetTypeWeb
		if seed.Type != "" {
			targetType = models.TargetType(seed.Type)
		}

		target := &models.Target{
			ID:               common.NewTargetID(),
			URL:              seed.URL,
			Type:             targetType,
			Status:           models.TargetStatusDiscovering,
			GreenLightStatus: models.GreenLightRed,
			AuthEndpoint:     seed.AuthEndpoint,
			AuthUsername:     seed.AuthUsername,
			CreatedAt:        time.Now().UTC(),
		}

		if err := targetStorage.SaveTarget(ctx, target); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Str("url", seed.URL).Msg("Failed to save seeded target")
			continue
		}

		loadedCount++
		logger.Debug().Str("url", seed.URL).Str("target_id", target.ID).Msg("Seeded target from file")
	}

	logger.Info().Int("loaded", loadedCount).Msg("Target definitions loaded")
	return nil
}
