package export

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/tkoenig/genealogybackend/media"
	"github.com/tkoenig/genealogybackend/models"
)

// page geometry in millimetres for A4 portrait
const (
	pdfMargin      = 10.0
	pdfPageWidth   = 210.0
	pdfPageHeight  = 297.0
	pdfImageWidth  = pdfPageWidth - 2*pdfMargin
	pdfImageHeight = pdfPageHeight - 2*pdfMargin - 30 // caption room
)

var pdfImageTypes = map[string]string{
	".jpg":  "JPG",
	".jpeg": "JPG",
	".png":  "PNG",
	".gif":  "GIF",
}

// CreatePhotoPDF writes a paginated document with one photo per page and a
// title/description caption underneath. Photos whose backing file is
// missing or whose format the PDF encoder cannot embed are skipped.
func CreatePhotoPDF(area *media.Area, photos []models.Photo, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory %s: %w", destDir, err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)

	pages := 0
	for _, photo := range photos {
		imageType, ok := pdfImageTypes[strings.ToLower(filepath.Ext(photo.Filename))]
		if !ok {
			log.Printf("export: skipping photo %d (%s): format not embeddable in PDF", photo.ID, photo.Filename)
			continue
		}
		srcPath, err := area.ResolvePhotoPath(photo.Owner, photo.Filename)
		if err != nil {
			log.Printf("export: skipping photo %d (%s): %v", photo.ID, photo.Filename, err)
			continue
		}

		opts := gofpdf.ImageOptions{ImageType: imageType}
		info := pdf.RegisterImageOptions(srcPath, opts)
		if pdf.Err() {
			log.Printf("export: failed to embed %s: %v. Skipping.", srcPath, pdf.Error())
			pdf.ClearError()
			continue
		}

		width := pdfImageWidth
		height := width * info.Height() / info.Width()
		if height > pdfImageHeight {
			height = pdfImageHeight
			width = height * info.Width() / info.Height()
		}

		pdf.AddPage()
		x := (pdfPageWidth - width) / 2
		pdf.ImageOptions(srcPath, x, pdfMargin, width, height, false, opts, 0, "")

		pdf.SetY(pdfMargin + height + 5)
		if photo.Title != "" {
			pdf.SetFont("Helvetica", "B", 13)
			pdf.MultiCell(pdfImageWidth, 7, photo.Title, "", "C", false)
		}
		caption := photo.Description
		if photo.DatePhoto != "" {
			if caption != "" {
				caption = photo.DatePhoto + " - " + caption
			} else {
				caption = photo.DatePhoto
			}
		}
		if caption != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(pdfImageWidth, 5, caption, "", "C", false)
		}
		pages++
	}

	if pages == 0 {
		return "", fmt.Errorf("no photo files available to export")
	}

	finalPath := filepath.Join(destDir, destinationName("photos", ".pdf"))
	tmpPath := finalPath + ".part"
	if err := pdf.OutputFileAndClose(tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write pdf export: %w", err)
	}
	if err := finishTemp(tmpPath, finalPath); err != nil {
		return "", err
	}

	log.Printf("export: created photo pdf %s (%d page(s))", finalPath, pages)
	return finalPath, nil
}
