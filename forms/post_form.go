// Package forms holds the user-editable form types and their validation.
package forms

import (
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/avolkov/inkwell/models"
)

// PostForm is the single form shared by post creation and editing. Only text
// and group are user-editable.
type PostForm struct {
	Text     string
	GroupRaw string
	GroupID  *uint
	Errors   map[string]string
}

// NewPostForm builds a form from raw submitted values.
func NewPostForm(text, group string) *PostForm {
	return &PostForm{
		Text:     text,
		GroupRaw: strings.TrimSpace(group),
		Errors:   map[string]string{},
	}
}

// FromPost pre-fills the form with a post's current text and group, used by
// the edit page.
func FromPost(post models.Post) *PostForm {
	f := &PostForm{
		Text:    post.Text,
		GroupID: post.GroupID,
		Errors:  map[string]string{},
	}
	if post.GroupID != nil {
		f.GroupRaw = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return f
}

// Validate checks the submitted values: text must be non-empty after
// trimming, group (when present) must reference an existing group. It fills
// Errors with field-level messages and reports overall validity.
func (f *PostForm) Validate(db *gorm.DB) bool {
	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" {
		f.Errors["text"] = "Text is required."
	}

	f.GroupID = nil
	if f.GroupRaw != "" {
		id, err := strconv.ParseUint(f.GroupRaw, 10, 32)
		if err != nil {
			f.Errors["group"] = "Select a valid group."
		} else {
			var group models.Group
			if err := db.First(&group, uint(id)).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					f.Errors["group"] = "Select a valid group."
				} else {
					f.Errors["group"] = "Could not verify the group."
				}
			} else {
				f.GroupID = &group.ID
			}
		}
	}

	return len(f.Errors) == 0
}

// GroupSelected reports whether the given group is the form's current choice,
// used by the template to mark the selected option.
func (f *PostForm) GroupSelected(id uint) bool {
	return f.GroupID != nil && *f.GroupID == id
}
