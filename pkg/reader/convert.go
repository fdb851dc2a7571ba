package reader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// conversionTimeout bounds one unoconv run.
const conversionTimeout = 5 * time.Minute

// ConvertWorkbookToXLSX converts a legacy workbook to .xlsx with unoconv in
// a private temporary directory. Sheets and their order are preserved.
func ConvertWorkbookToXLSX(ctx context.Context, input []byte, ext string) ([]byte, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("nanoid: %w", err)
	}
	tmpDir := filepath.Join(os.TempDir(), "linkchart-sheet-"+id)
	if err := os.MkdirAll(tmpDir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir tmp: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inPath := filepath.Join(tmpDir, "input."+ext)
	if err := os.WriteFile(inPath, input, 0o600); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	if _, err := exec.LookPath("unoconv"); err != nil {
		return nil, fmt.Errorf("unoconv not found in PATH: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, conversionTimeout)
	defer cancel()

	outPath := filepath.Join(tmpDir, "output.xlsx")
	cmd := exec.CommandContext(ctx, "unoconv", "-f", "xlsx", "-o", outPath, inPath)
	cmd.Dir = tmpDir
	cmd.Env = append(os.Environ(), "LANG=C.UTF-8", "LC_ALL=C.UTF-8")
	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("unoconv timed out")
	}
	if err != nil {
		return nil, fmt.Errorf("unoconv failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	converted, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read converted workbook: %w", err)
	}
	return converted, nil
}
