package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

var errNoArtwork = errors.New("no artwork")

// maxArtworkBytes caps downloads; covers are rarely above a few MB
const maxArtworkBytes = 16 << 20

// artwork is a cover image prepared for display
type artwork struct {
	URL     string
	Encoded string // Kitty graphics escape sequence
	Color   string // accent colour, empty unless extracted
}

// artworkOptions controls how loadArtwork prepares an image
type artworkOptions struct {
	WidthPixels  int
	WidthColumns int
	ExtractColor bool
}

// fetchArtwork resolves an MPRIS art URL to raw image bytes. It accepts
// file:// URLs and bare paths, http(s):// URLs and base64 data: URIs.
func fetchArtwork(ctx context.Context, client *http.Client, artURL string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case artURL == "":
		return nil, errNoArtwork
	case strings.HasPrefix(artURL, "file://"):
		u, perr := url.Parse(artURL)
		if perr != nil {
			return nil, fmt.Errorf("invalid artwork URL: %w", perr)
		}
		data, err = os.ReadFile(u.Path)
	case strings.HasPrefix(artURL, "/"):
		data, err = os.ReadFile(artURL)
	case strings.HasPrefix(artURL, "http://"), strings.HasPrefix(artURL, "https://"):
		data, err = downloadArtwork(ctx, client, artURL)
	case strings.HasPrefix(artURL, "data:image/"):
		data, err = decodeDataURI(artURL)
	default:
		return nil, fmt.Errorf("unsupported artwork URL scheme: %s", artURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artwork: %w", err)
	}
	if len(data) == 0 {
		return nil, errNoArtwork
	}
	return data, nil
}

func downloadArtwork(ctx context.Context, client *http.Client, artURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxArtworkBytes))
}

// decodeDataURI handles data:image/png;base64,....
func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 || !strings.HasSuffix(uri[:comma], ";base64") {
		return nil, fmt.Errorf("unsupported data URI")
	}
	return base64.StdEncoding.DecodeString(uri[comma+1:])
}

// decodeArtworkData decodes raw image bytes into an image.Image
func decodeArtworkData(imageData []byte) (image.Image, error) {
	if len(imageData) == 0 {
		return nil, errNoArtwork
	}
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// hsl returns lightness and saturation of an 8-bit colour
func hsl(r, g, b uint8) (lightness, saturation float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	max := rf
	if gf > max {
		max = gf
	}
	if bf > max {
		max = bf
	}
	min := rf
	if gf < min {
		min = gf
	}
	if bf < min {
		min = bf
	}

	lightness = (max + min) / 2
	if max != min {
		if lightness > 0.5 {
			saturation = (max - min) / (2 - max - min)
		} else {
			saturation = (max - min) / (max + min)
		}
	}
	return lightness, saturation
}

// extractDominantColor picks a vibrant, light colour that reads well on a
// dark background, falling back to k-means clustering.
func extractDominantColor(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil image")
	}

	bounds := img.Bounds()
	counts := make(map[uint32]int)
	const sampleRate = 5

	for y := bounds.Min.Y; y < bounds.Max.Y; y += sampleRate {
		for x := bounds.Min.X; x < bounds.Max.X; x += sampleRate {
			r, g, b, a := img.At(x, y).RGBA()
			if a < 32768 {
				continue
			}
			rgb := (r>>8)<<16 | (g>>8)<<8 | b>>8
			counts[rgb]++
		}
	}

	type candidate struct {
		rgb   uint32
		score float64
	}
	var candidates []candidate

	for rgb, count := range counts {
		lightness, saturation := hsl(uint8(rgb>>16), uint8(rgb>>8), uint8(rgb))
		if lightness < 0.3 || lightness > 0.85 || saturation < 0.25 {
			continue
		}
		lightnessScore := lightness
		if lightness > 0.7 {
			lightnessScore = 1.4 - lightness
		}
		score := saturation*2.5 + lightnessScore*1.5 + float64(count)/1000
		candidates = append(candidates, candidate{rgb: rgb, score: score})
	}

	if len(candidates) == 0 {
		colors, err := prominentcolor.Kmeans(img)
		if err != nil || len(colors) == 0 {
			return "", fmt.Errorf("no suitable colors found")
		}
		c := colors[0]
		return fmt.Sprintf("#%02x%02x%02x", c.Color.R, c.Color.G, c.Color.B), nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].rgb < candidates[j].rgb
	})
	best := candidates[0].rgb
	return fmt.Sprintf("#%02x%02x%02x", uint8(best>>16), uint8(best>>8), uint8(best)), nil
}

// supportsKittyGraphics checks whether the terminal speaks the Kitty graphics protocol
func supportsKittyGraphics(getenv func(string) string) bool {
	term := getenv("TERM")
	if strings.Contains(term, "kitty") || strings.Contains(term, "konsole") {
		return true
	}
	switch getenv("TERM_PROGRAM") {
	case "ghostty", "WezTerm":
		return true
	}
	return false
}

const (
	kittyImageID   = 42
	kittyChunkSize = 4096
	// kittyDeleteAll removes every placed image
	kittyDeleteAll = "\033_Ga=d,d=A\033\\"
)

// encodeArtworkForKitty resizes img and wraps it in Kitty graphics escapes
func encodeArtworkForKitty(img image.Image, widthPixels, widthColumns int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil image")
	}

	resized := resize.Resize(uint(widthPixels), 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	var result strings.Builder
	fmt.Fprintf(&result, "\033_Ga=d,d=I,i=%d\033\\", kittyImageID)

	// Payloads are sent in chunks; m=1 marks that more follow.
	for i := 0; i < len(encoded) || i == 0; i += kittyChunkSize {
		end := i + kittyChunkSize
		if end > len(encoded) {
			end = len(encoded)
		}
		more := 0
		if end < len(encoded) {
			more = 1
		}
		if i == 0 {
			fmt.Fprintf(&result, "\033_Ga=T,f=100,t=d,i=%d,c=%d,C=1,m=%d;%s\033\\",
				kittyImageID, widthColumns, more, encoded[i:end])
		} else {
			fmt.Fprintf(&result, "\033_Gm=%d;%s\033\\", more, encoded[i:end])
		}
	}
	return result.String(), nil
}

// loadArtwork fetches, decodes and encodes the cover at artURL
func loadArtwork(ctx context.Context, client *http.Client, artURL string, opts artworkOptions) (*artwork, error) {
	data, err := fetchArtwork(ctx, client, artURL)
	if err != nil {
		return nil, err
	}
	img, err := decodeArtworkData(data)
	if err != nil {
		return nil, err
	}

	art := &artwork{URL: artURL}
	if opts.ExtractColor {
		if c, err := extractDominantColor(img); err == nil {
			art.Color = c
		}
	}
	if art.Encoded, err = encodeArtworkForKitty(img, opts.WidthPixels, opts.WidthColumns); err != nil {
		return nil, err
	}
	return art, nil
}
