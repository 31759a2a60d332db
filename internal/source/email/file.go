package email

import (
	"context"
	"fmt"
	"os"

	"github.com/nhle/mailextract/internal/model"
)

// FileSource reads a single message from an .eml file. UIDs are ignored.
type FileSource struct {
	Path string
}

// Message parses the file.
func (f FileSource) Message(_ context.Context, _ uint32) (model.Message, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return model.Message{}, fmt.Errorf("opening %s: %w", f.Path, err)
	}
	defer file.Close()

	msg, err := ParseMessage(file)
	if err != nil {
		return model.Message{}, fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	return msg, nil
}
