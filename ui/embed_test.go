package ui

import (
	"io/fs"
	"strings"
	"testing"
)

// TestDistFSEmbedded verifies that the UI page is embedded
func TestDistFSEmbedded(t *testing.T) {
	indexData, err := fs.ReadFile(DistFS(), "index.html")
	if err != nil {
		t.Fatalf("Failed to read index.html from embedded filesystem: %v", err)
	}

	content := string(indexData)
	if len(content) < 100 {
		t.Errorf("index.html seems too short (%d bytes), might be invalid", len(content))
	}
	if !strings.Contains(content, "<!DOCTYPE") && !strings.Contains(content, "<html") {
		t.Error("index.html does not appear to be valid HTML (missing DOCTYPE or <html>)")
	}
	if !strings.Contains(content, "assets/app.js") {
		t.Error("index.html does not load assets/app.js")
	}
}

// TestAssetsDirectoryEmbedded verifies that the assets subdirectory is embedded
func TestAssetsDirectoryEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(DistFS(), "assets")
	if err != nil {
		t.Fatalf("Failed to read assets directory: %v", err)
	}

	names := map[string]bool{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := fs.ReadFile(DistFS(), "assets/"+entry.Name())
		if err != nil || len(data) == 0 {
			t.Errorf("asset %s is unreadable or empty", entry.Name())
		}
		names[entry.Name()] = true
	}

	for _, want := range []string{"app.js", "app.css"} {
		if !names[want] {
			t.Errorf("expected asset %s to be embedded", want)
		}
	}
}
