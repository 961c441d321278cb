package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanshika/txwebhook/internal/client"
)

// FileName is the dataset file written under the output directory.
const FileName = "notifications.json"

// WriteDataset serializes the deliveries into notifications.json under dir.
func WriteDataset(dataset Dataset, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := writeJSON(path, dataset.Notifications); err != nil {
		return "", err
	}
	return path, nil
}

// ReadNotifications loads a file produced by WriteDataset.
func ReadNotifications(path string) ([]client.Webhook, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var hooks []client.Webhook
	if err := json.NewDecoder(file).Decode(&hooks); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return hooks, nil
}

func writeJSON(path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}
