// package formatter provides functions to export stored collections to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/marquee/internal/models"
)

// Supported export formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists every supported export format.
func Formats() []string {
	return []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}
}

// CollectionExport is one named collection prepared for export.
type CollectionExport struct {
	Collection models.Collection  `json:"collection"`
	Label      string             `json:"label"`
	UserID     string             `json:"user_id"`
	ExportedAt time.Time          `json:"exported_at"`
	Items      []models.MediaItem `json:"items"`
}

// NewCollectionExport snapshots items of collection c for userID.
func NewCollectionExport(userID string, c models.Collection, items []models.MediaItem, at time.Time) *CollectionExport {
	if items == nil {
		items = []models.MediaItem{}
	}
	return &CollectionExport{
		Collection: c,
		Label:      c.Label(),
		UserID:     userID,
		ExportedAt: at,
		Items:      items,
	}
}

// ExportToCSV converts a CollectionExport to CSV format with columns: ID, Type, Title, Year, Rating, Runtime, Genres, Poster
func ExportToCSV(export *CollectionExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Type", "Title", "Year", "Rating", "Runtime", "Genres", "Poster"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range export.Items {
		record := []string{
			item.ID,
			string(item.MediaType),
			item.DisplayTitle(),
			item.Year(),
			item.Rating(),
			item.Runtime(),
			strings.Join(item.Genres, "; "),
			item.PosterPath,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a CollectionExport to Markdown. Posters are linked against posterBase when it is set.
func ExportToMarkdown(export *CollectionExport, posterBase string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Label)
	fmt.Fprintf(&buf, "**Titles**: %d\n", len(export.Items))
	if !export.ExportedAt.IsZero() {
		fmt.Fprintf(&buf, "**Exported**: %s\n", export.ExportedAt.Format(time.RFC3339))
	}
	buf.WriteString("\n## Titles\n\n")

	for i, item := range export.Items {
		year := ""
		if y := item.Year(); y != "" {
			year = fmt.Sprintf(" (%s)", y)
		}
		fmt.Fprintf(&buf, "%d. **%s**%s [%s, %s]\n", i+1, item.DisplayTitle(), year, item.MediaType, item.Rating())

		if posterBase != "" && item.PosterPath != "" {
			fmt.Fprintf(&buf, "   ![%s](%s)\n", item.DisplayTitle(), models.ImageURL(posterBase, item.PosterPath))
		}
		if item.Overview != "" {
			fmt.Fprintf(&buf, "   %s\n", item.Overview)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a CollectionExport to plain text format
func ExportToText(export *CollectionExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Collection: %s\n", export.Label)
	fmt.Fprintf(&buf, "Titles: %d\n\n", len(export.Items))

	for i, item := range export.Items {
		line := fmt.Sprintf("%d. %s", i+1, item.DisplayTitle())
		if y := item.Year(); y != "" {
			line += fmt.Sprintf(" (%s)", y)
		}
		fmt.Fprintf(&buf, "%s - %s\n", line, item.MediaType.Label())
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a CollectionExport to indented JSON
func ExportToJSON(export *CollectionExport) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// ToMetadataJSON generates a JSON representation of the export metadata (without items)
func ToMetadataJSON(export *CollectionExport) ([]byte, error) {
	meta := struct {
		Collection models.Collection `json:"collection"`
		Label      string            `json:"label"`
		UserID     string            `json:"user_id"`
		ExportedAt time.Time         `json:"exported_at"`
		Count      int               `json:"count"`
	}{export.Collection, export.Label, export.UserID, export.ExportedAt, len(export.Items)}

	return json.MarshalIndent(meta, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ItemsFile    string
	MetadataFile string
}

// WriteCSVExport exports a collection to CSV format with accompanying metadata JSON file.
//
// Defaults to the collection name as the base filename & creates {base}_items.csv and {base}_metadata.json
func WriteCSVExport(export *CollectionExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = string(export.Collection)
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	itemsFile := baseFilepath + "_items.csv"
	if err := os.WriteFile(itemsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ItemsFile:    itemsFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports a collection to {dir}/README.md.
//
// Directory name defaults to the collection name.
func WriteMarkdownExport(export *CollectionExport, outputDir, posterBase string) (string, error) {
	if outputDir == "" {
		outputDir = string(export.Collection)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export, posterBase)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a collection to plain text format.
//
// Defaults to {collection}_items.txt as the filename.
func WriteTextExport(export *CollectionExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_items.txt", export.Collection)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport exports a collection to JSON.
//
// Defaults to {collection}.json as the filename.
func WriteJSONExport(export *CollectionExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s.json", export.Collection)
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return path, nil
}

// WriteExport writes export into dir using format and returns the created files.
func WriteExport(export *CollectionExport, format, dir, posterBase string) ([]string, error) {
	base := filepath.Join(dir, string(export.Collection))

	switch format {
	case FormatCSV:
		res, err := WriteCSVExport(export, base)
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.ItemsFile, res.MetadataFile}, nil
	case FormatMarkdown:
		file, err := WriteMarkdownExport(export, base, posterBase)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return []string{file}, nil
	case FormatText:
		file, err := WriteTextExport(export, base+"_items.txt")
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{file}, nil
	case FormatJSON, "":
		file, err := WriteJSONExport(export, base+".json")
		if err != nil {
			return nil, fmt.Errorf("JSON export failed: %w", err)
		}
		return []string{file}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// ManifestEntry summarizes the export of one collection.
type ManifestEntry struct {
	Collection models.Collection `json:"collection"`
	Items      int               `json:"items"`
	Files      []string          `json:"files"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
}

// Manifest summarizes a multi-collection export.
type Manifest struct {
	ExportedAt      time.Time       `json:"exported_at"`
	Format          string          `json:"format"`
	UserID          string          `json:"user_id"`
	OutputDirectory string          `json:"output_directory"`
	Successful      int             `json:"successful"`
	Failed          int             `json:"failed"`
	Entries         []ManifestEntry `json:"collections"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m *Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
