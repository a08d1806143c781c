/**
 * OCR Types - Shared data structures for OCR operations
 *
 * Pass presets and crop regions are tuned for the printed roll template at
 * 300 DPI.
 */

package processor

import (
	"image"
	"time"
)

// Language tags accepted by OCREngine
const (
	LangHindi   = "hi"
	LangEnglish = "en"
)

// Page segmentation modes used by the passes (Tesseract numbering)
const (
	PSMAuto         = 3
	PSMSingleColumn = 4
	PSMSingleWord   = 8
)

// TextOptions selects language, layout mode and character filter for one
// OCR call.
type TextOptions struct {
	Name      string // pass name, used in logs and errors
	Language  string // LangHindi or LangEnglish
	PSM       int
	Whitelist string
	Blacklist string
}

// OCR passes
var (
	CoverPass = TextOptions{Name: "cover", Language: LangHindi, PSM: PSMSingleColumn, Blacklist: "॥"}

	TableHindiPass   = TextOptions{Name: "table-hindi", Language: LangHindi, PSM: PSMSingleColumn, Blacklist: "॥"}
	TableEnglishPass = TextOptions{Name: "table-english", Language: LangEnglish, PSM: PSMAuto, Whitelist: "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ:/"}

	CropDigitPass = TextOptions{Name: "crop-digits", Language: LangEnglish, PSM: PSMSingleWord, Whitelist: "0123456789"}
	CropHindiPass = TextOptions{Name: "crop-hindi", Language: LangHindi, PSM: PSMSingleWord, Blacklist: "॥._"}
)

// OCRResult represents the result of one OCR call
type OCRResult struct {
	Text     string
	Pass     string
	Duration time.Duration
}

// Region is a pixel rectangle on a rendered page
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect converts the region to an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Scale maps a region measured at TemplateDPI to dpi.
func (r Region) Scale(dpi int) Region {
	if dpi == TemplateDPI || dpi <= 0 {
		return r
	}
	s := func(v int) int { return v * dpi / TemplateDPI }
	return Region{X: s(r.X), Y: s(r.Y), Width: s(r.Width), Height: s(r.Height)}
}

// TemplateDPI is the resolution CoverCropRegions were measured at.
const TemplateDPI = 300

// CoverCropRegions are the ten cover page crops in crop vector order: six
// sanity digits, then part, zip code, post office and district.
var CoverCropRegions = [10]Region{
	{X: 246, Y: 3048, Width: 60, Height: 60},
	{X: 656, Y: 3048, Width: 104, Height: 48},
	{X: 1022, Y: 3097, Width: 80, Height: 37},
	{X: 1384, Y: 3097, Width: 80, Height: 37},
	{X: 1713, Y: 3097, Width: 109, Height: 39},
	{X: 2090, Y: 3097, Width: 109, Height: 39},
	{X: 2242, Y: 238, Width: 96, Height: 96},
	{X: 1812, Y: 2158, Width: 186, Height: 78},
	{X: 1800, Y: 1602, Width: 280, Height: 74},
	{X: 1804, Y: 2092, Width: 330, Height: 72},
}

// cropPass returns the OCR pass for crop i. Post office and district are
// words, the rest are digits.
func cropPass(i int) TextOptions {
	if i >= 8 {
		return CropHindiPass
	}
	return CropDigitPass
}
