// models/gorm_models.go
package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GormWordSet 词库模型
type GormWordSet struct {
	gorm.Model
	SetID string         `gorm:"uniqueIndex;not null"`
	Name  string         `gorm:"not null"`
	Words pq.StringArray `gorm:"type:text[];not null"`
}

func (GormWordSet) TableName() string {
	return "word_sets"
}

// ToWordSet converts the row to the domain value.
func (m *GormWordSet) ToWordSet() *WordSet {
	words := make([]string, len(m.Words))
	copy(words, m.Words)
	return &WordSet{ID: m.SetID, Name: m.Name, Words: words}
}

// GormWordSetFrom builds a row from the domain value.
func GormWordSetFrom(ws *WordSet) *GormWordSet {
	return &GormWordSet{
		SetID: ws.ID,
		Name:  ws.Name,
		Words: pq.StringArray(append([]string(nil), ws.Words...)),
	}
}
