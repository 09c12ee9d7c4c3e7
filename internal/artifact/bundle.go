package artifact

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/models"
)

// Archive member names are fixed so clients can unpack without guessing:
// audio.<ext>, image.<ext>, metadata.json.
const metadataMemberName = "metadata.json"

// Bundle writes a zip archive containing the task's audio and image
// artifacts plus a metadata document to w. The payloads are copied verbatim,
// so a client unpacking the bundle gets back byte-identical files.
func Bundle(w io.Writer, artifacts models.TaskArtifacts, meta models.ResultMetadata) error {
	zw := zip.NewWriter(w)

	if err := addFile(zw, "audio"+filepath.Ext(artifacts.AudioPath), artifacts.AudioPath); err != nil {
		zw.Close()
		return err
	}
	if err := addFile(zw, "image"+filepath.Ext(artifacts.ImagePath), artifacts.ImagePath); err != nil {
		zw.Close()
		return err
	}

	mw, err := zw.Create(metadataMemberName)
	if err != nil {
		zw.Close()
		return fmt.Errorf("create %s entry: %w", metadataMemberName, err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		zw.Close()
		return fmt.Errorf("encode metadata: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize bundle: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact %s: %w", path, err)
	}
	defer f.Close()

	entry, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s entry: %w", name, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("write %s entry: %w", name, err)
	}
	return nil
}
