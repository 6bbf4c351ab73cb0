package models

import "time"

// Post is a single authored text entry. The author reference is mandatory and
// removing the author removes the post; the group reference is optional and
// is cleared when the group is deleted.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"<-:create;index;not null;autoCreateTime" json:"pub_date"`
	AuthorID uint      `gorm:"<-:create;index;not null" json:"author_id"`
	GroupID  *uint     `gorm:"index" json:"group_id"`
	Author   User      `json:"author"`
	Group    *Group    `json:"group,omitempty"`
}

// Preview returns the leading runes of the text, used wherever a post has to
// be named in one line.
func (p Post) Preview() string {
	r := []rune(p.Text)
	if len(r) <= 15 {
		return p.Text
	}
	return string(r[:15])
}
