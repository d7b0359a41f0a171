package models

// DailyContent is the photo and fact shown for one calendar date.
// Written once per date, never updated.
type DailyContent struct {
	Base
	Date            string `json:"date"             gorm:"size:10;uniqueIndex;not null"` // YYYY-MM-DD
	PhotoURL        string `json:"photo_url"        gorm:"size:512"`
	PhotoPageURL    string `json:"photo_page_url"   gorm:"size:512"`
	PhotoWidth      int    `json:"photo_width"`
	PhotoHeight     int    `json:"photo_height"`
	AttributionURL  string `json:"attribution_url"  gorm:"size:512"`
	AttributionName string `json:"attribution_name" gorm:"size:255"`
	Fact            string `json:"fact"             gorm:"type:text"`
	Fallback        bool   `json:"fallback"`
}

func (DailyContent) TableName() string { return "daily_contents" }
