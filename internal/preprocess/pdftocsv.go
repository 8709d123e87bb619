package preprocess

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

// PDFTableConverter extracts tabular data from a PDF into a CSV file by
// shelling out to a Tabula-compatible extraction jar.
type PDFTableConverter struct {
	// JarPath is the path to the extraction jar.
	JarPath string
	Timeout time.Duration
}

func NewPDFTableConverter(jarPath string) *PDFTableConverter {
	return &PDFTableConverter{JarPath: jarPath, Timeout: 60 * time.Second}
}

// Convert writes data to fileName inside scope, runs the extraction jar
// over all pages, and returns the path to the resulting CSV file.
func (c *PDFTableConverter) Convert(scope *Scope, fileName string, data []byte) (string, error) {
	srcPath := scope.Path(fileName)
	if err := os.WriteFile(srcPath, data, 0o600); err != nil {
		return "", preprocessingErrorf(err, "writing %q to scratch directory", fileName)
	}
	destPath := scope.Path(stem(fileName) + ".csv")

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "java", "-jar", c.JarPath,
		"--pages", "all", "-o", destPath, srcPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", preprocessingErrorf(err, "extracting tables from %q: %s", fileName, strings.TrimSpace(string(output)))
	}
	if _, err := os.Stat(destPath); err != nil {
		return "", preprocessingErrorf(err, "extraction reported success but %q was not produced", destPath)
	}
	return destPath, nil
}
