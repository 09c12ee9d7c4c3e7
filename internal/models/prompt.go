package models

import (
	"strings"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/apperrs"
)

// Sheet column layout for a prompt row. The row is always padded to
// PromptColumnCount before field access, so short rows never fail.
const (
	ColID = iota
	ColPrompt
	ColImagePrompt
	ColTitle
	ColDescription
	ColTags
	ColMode
	ColStyle
	ColSongTitle
	ColVisibility
	ColVideoURL
	ColStatus

	PromptColumnCount = 12
)

// GenerationMode selects whether the audio provider writes lyrics and style
// itself (simple) or the prompt row supplies them (custom).
type GenerationMode string

const (
	ModeSimple GenerationMode = "simple"
	ModeCustom GenerationMode = "custom"
)

// PromptRecord is one row of the prompt sheet, read once per /run invocation
// and immutable afterwards.
type PromptRecord struct {
	ID          string
	Prompt      string
	ImagePrompt string
	Title       string
	Description string
	Tags        []string
	Mode        GenerationMode
	Style       string
	SongTitle   string
	Visibility  string
	VideoURL    string
	Status      string

	// Row is the 1-based sheet row the record came from, kept for write-back.
	Row int
}

// PadRow normalizes a raw sheet row to exactly PromptColumnCount cells,
// filling missing trailing cells with empty strings.
func PadRow(cells []string) []string {
	padded := make([]string, PromptColumnCount)
	copy(padded, cells)
	return padded
}

// NewPromptRecord builds a record from a raw row. It never fails on short
// rows; an empty mode cell defaults to simple, and domain validation happens
// in Validate.
func NewPromptRecord(row int, cells []string) *PromptRecord {
	c := PadRow(cells)
	mode := GenerationMode(strings.ToLower(strings.TrimSpace(c[ColMode])))
	if mode == "" {
		mode = ModeSimple
	}
	return &PromptRecord{
		ID:          strings.TrimSpace(c[ColID]),
		Prompt:      c[ColPrompt],
		ImagePrompt: c[ColImagePrompt],
		Title:       c[ColTitle],
		Description: c[ColDescription],
		Tags:        SplitTags(c[ColTags]),
		Mode:        mode,
		Style:       strings.TrimSpace(c[ColStyle]),
		SongTitle:   strings.TrimSpace(c[ColSongTitle]),
		Visibility:  strings.TrimSpace(c[ColVisibility]),
		VideoURL:    c[ColVideoURL],
		Status:      c[ColStatus],
		Row:         row,
	}
}

// Validate enforces the hard preconditions for starting a generation. These
// are request errors, distinct from provider or network failures.
func (p *PromptRecord) Validate() error {
	if p.Prompt == "" {
		return apperrs.Request("prompt row %q has no prompt text", p.ID)
	}
	switch p.Mode {
	case ModeSimple:
	case ModeCustom:
		if p.Style == "" {
			return apperrs.Request("custom mode requires a non-empty style")
		}
		if p.SongTitle == "" {
			return apperrs.Request("custom mode requires a non-empty song title")
		}
	default:
		return apperrs.Request("unknown generation mode %q", p.Mode)
	}
	return nil
}

// SplitTags turns a comma-separated cell into trimmed tags, dropping empties.
func SplitTags(cell string) []string {
	var tags []string
	for _, t := range strings.Split(cell, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
