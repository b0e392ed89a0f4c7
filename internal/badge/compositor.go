// Package badge renders registration badges: an optional exhibition banner,
// the QR code and visitor text block side by side, and a category color
// band, persisted as versioned immutable PNG artifacts.
package badge

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // banner decoding
	"image/png"
	"net/http"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/basicfont"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

const (
	badgeWidth   = 640
	bannerHeight = 160
	bodyHeight   = 360
	bandHeight   = 48
	margin       = 20
)

type Compositor struct {
	Store  *Store
	Client *http.Client
	Logger *logger.Logger
}

func NewCompositor(store *Store, client *http.Client, log *logger.Logger) *Compositor {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Compositor{Store: store, Client: client, Logger: log}
}

// Latest exposes the store's latest-by-timestamp resolution.
func (c *Compositor) Latest(registrationID string) (string, bool) {
	return c.Store.Latest(registrationID)
}

// Generate renders and persists a new badge version, returning the artifact
// file name. Every generation writes a new versioned file; older versions
// are cleaned up asynchronously after the new one is verified. Any failure
// returns an error the caller degrades on; nothing here panics or blocks
// the registration outcome.
func (c *Compositor) Generate(ctx context.Context, reg *models.Registration, vis *models.Visitor, ex *models.Exhibition) (string, error) {
	data, err := c.compose(ctx, reg, vis, ex)
	if err != nil {
		return "", err
	}

	version := time.Now().UnixMilli()
	name, err := c.Store.Write(reg.ID, version, data)
	if err != nil {
		return "", err
	}

	// Old versions encode the same registration data, so their removal is
	// non-blocking and best-effort.
	go c.Store.RemoveOlderVersions(reg.ID, version)

	if c.Logger != nil {
		c.Logger.LogBadge(reg.ID, fmt.Sprintf("generated %s", name))
	}
	return name, nil
}

func (c *Compositor) compose(ctx context.Context, reg *models.Registration, vis *models.Visitor, ex *models.Exhibition) ([]byte, error) {
	banner := c.fetchBanner(ctx, ex.BannerURL)

	height := bodyHeight + bandHeight
	if banner != nil {
		height += bannerHeight
	}

	dc := gg.NewContext(badgeWidth, height)
	dc.SetColor(color.White)
	dc.Clear()

	top := 0
	if banner != nil {
		scaled := image.NewRGBA(image.Rect(0, 0, badgeWidth, bannerHeight))
		// Smoothing is fine for the banner; only the QR must stay sharp.
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), banner, banner.Bounds(), draw.Over, nil)
		dc.DrawImage(scaled, 0, 0)
		top = bannerHeight
	}

	qrPNG, err := RenderQR(reg.QRPayload)
	if err != nil {
		return nil, fmt.Errorf("qr render: %w", err)
	}
	qrImg, err := png.Decode(bytes.NewReader(qrPNG))
	if err != nil {
		return nil, fmt.Errorf("qr decode: %w", err)
	}
	if qrImg.Bounds().Dx() != QRSize {
		// Nearest neighbor only: interpolation would blur module edges and
		// slow down kiosk scanners.
		sharp := image.NewRGBA(image.Rect(0, 0, QRSize, QRSize))
		draw.NearestNeighbor.Scale(sharp, sharp.Bounds(), qrImg, qrImg.Bounds(), draw.Src, nil)
		qrImg = sharp
	}
	dc.DrawImage(qrImg, margin, top+margin)

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(0, 0, 0)

	textX := float64(margin + QRSize + margin)
	textY := float64(top + margin + 16)
	lines := []string{
		vis.Name,
		vis.Company,
		vis.Designation,
		"",
		ex.Name,
		reg.Category,
		"",
		reg.RegistrationNumber,
	}
	for _, line := range lines {
		if line != "" {
			dc.DrawString(line, textX, textY)
		}
		textY += 22
	}

	dc.SetColor(categoryColor(ex, reg.Category))
	dc.DrawRectangle(0, float64(height-bandHeight), badgeWidth, bandHeight)
	dc.Fill()

	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// fetchBanner downloads and decodes the exhibition banner. A missing or
// unreachable banner is not an error; the badge is simply rendered without
// one.
func (c *Compositor) fetchBanner(ctx context.Context, url string) image.Image {
	if url == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn("BADGE", fmt.Sprintf("banner fetch %s: %v", url, err))
		}
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn("BADGE", fmt.Sprintf("banner decode %s: %v", url, err))
		}
		return nil
	}
	return img
}

func categoryColor(ex *models.Exhibition, category string) color.Color {
	if hex, ok := ex.CategoryColors[category]; ok {
		if c, err := parseHexColor(hex); err == nil {
			return c
		}
	}
	return color.RGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xFF}
}

func parseHexColor(s string) (color.RGBA, error) {
	var r, g, b uint8
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("bad hex color %q", s)
	}
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}, nil
}
