package preprocess

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// sofficePath is the LibreOffice CLI binary. Its location is
// environment-dependent, so it defaults to relying on PATH but can be
// pointed at an absolute path via SetOfficeConverterPath (wired from
// config.SubprocessConfig.OfficeConverterPath at startup).
var sofficePath = "soffice"

// SetOfficeConverterPath overrides the soffice binary every OfficeConverter
// built afterward will invoke.
func SetOfficeConverterPath(path string) {
	if path != "" {
		sofficePath = path
	}
}

// OfficeConverter converts legacy Office documents (xls, doc) to a target
// format LibreOffice's headless mode supports, by shelling out to soffice.
// LibreOffice exits zero even when conversion silently fails, so success is
// judged by whether the expected output file actually appears, not by the
// subprocess exit code alone.
type OfficeConverter struct {
	// TargetExtension is the output file extension, e.g. "xlsx".
	TargetExtension string
	// TargetFilterName is LibreOffice's filter name for the target type,
	// e.g. "xlsx:Calc MS Excel 2007 XML".
	TargetFilterName string
	// Timeout bounds how long the subprocess may run.
	Timeout time.Duration
}

// NewOfficeConverter builds a converter for the given LibreOffice filter,
// e.g. NewOfficeConverter("xlsx", "xlsx:Calc MS Excel 2007 XML").
func NewOfficeConverter(targetExtension, targetFilterName string) *OfficeConverter {
	return &OfficeConverter{
		TargetExtension:  targetExtension,
		TargetFilterName: targetFilterName,
		Timeout:          60 * time.Second,
	}
}

// Convert writes data to a temporary file named fileName inside scope,
// invokes soffice to convert it, and returns the path to the converted
// file.
func (c *OfficeConverter) Convert(scope *Scope, fileName string, data []byte) (string, error) {
	srcPath := scope.Path(fileName)
	if err := os.WriteFile(srcPath, data, 0o600); err != nil {
		return "", preprocessingErrorf(err, "writing %q to scratch directory", fileName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, sofficePath,
		"--headless", "--convert-to", c.TargetFilterName,
		"--outdir", scope.Dir(), srcPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", preprocessingErrorf(err, "converting %q with soffice: %s", fileName, strings.TrimSpace(string(output)))
	}

	destPath := scope.Path(stem(fileName) + "." + c.TargetExtension)
	if _, err := os.Stat(destPath); err != nil {
		return "", preprocessingErrorf(err, "soffice reported success but %q was not produced", destPath)
	}
	return destPath, nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
