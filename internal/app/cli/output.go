package cli

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"
)

type catalogStats struct {
	Directories int `json:"directories"`
	Entries     int `json:"entries"`
	Depth       int `json:"depth"`
}

type catalogOutput struct {
	Root  string          `json:"root"`
	Stats catalogStats    `json:"stats"`
	Tree  json.RawMessage `json:"tree"`
}

type fileOutput struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
}

// writeJSON は v をインデント付きJSONで出力する
func writeJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(output(cmd))
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("JSON出力に失敗: %w", err)
	}
	return nil
}
