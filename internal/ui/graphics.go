package ui

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/qeesung/image2ascii/convert"
)

// TerminalCapabilities represents which graphics protocols the terminal supports.
type TerminalCapabilities struct {
	SupportsKitty  bool
	SupportsSixel  bool
	SupportsITerm2 bool
}

// DetectTerminalCapabilities detects which graphics protocols the terminal supports.
func DetectTerminalCapabilities() TerminalCapabilities {
	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	return TerminalCapabilities{
		SupportsKitty:  strings.Contains(term, "kitty") || os.Getenv("KITTY_WINDOW_ID") != "",
		SupportsSixel:  detectSixelSupport(),
		SupportsITerm2: termProgram == "iTerm.app",
	}
}

// detectSixelSupport checks if the terminal supports Sixel graphics.
// This is a simplified check - we look for common Sixel-capable terminals.
func detectSixelSupport() bool {
	term := os.Getenv("TERM")

	// Xterm with Sixel support
	if strings.Contains(term, "xterm") && os.Getenv("XTERM_VERSION") != "" {
		return true
	}

	// MLTerm
	if strings.Contains(term, "mlterm") {
		return true
	}

	// WezTerm
	if os.Getenv("WEZTERM_EXECUTABLE") != "" {
		return true
	}

	// Foot terminal
	if strings.Contains(term, "foot") {
		return true
	}

	return false
}

// RenderReviewImage renders a review photo for the terminal. ASCII art
// is the universal fallback; it works everywhere the richer protocols
// do not.
func RenderReviewImage(data []byte, caps TerminalCapabilities, targetWidth, targetHeight int) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	return convertToASCII(img, targetWidth, targetHeight), nil
}

// convertToASCII converts an image to colored ASCII art.
func convertToASCII(img image.Image, targetWidth, targetHeight int) string {
	converter := convert.NewImageConverter()

	opts := convert.DefaultOptions
	opts.FixedWidth = targetWidth
	opts.FixedHeight = targetHeight
	opts.Colored = true // Use ANSI colors
	opts.Ratio = 0.5    // Adjust for terminal character aspect ratio

	return converter.Image2ASCIIString(img, &opts)
}
