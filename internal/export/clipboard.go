package export

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

// CopyToClipboard puts the plain-text caption dump on the system
// clipboard. Headless machines without a clipboard report an error
// rather than failing silently.
func CopyToClipboard(entities []caption.Entity) error {
	if clipboard.Unsupported {
		return fmt.Errorf("export: no system clipboard available")
	}
	if err := clipboard.WriteAll(GenerateText(entities)); err != nil {
		return fmt.Errorf("export: clipboard write: %w", err)
	}
	return nil
}
