package domain

import "time"

// RoadTypeCategory is the coarse road classification used by the accident charts.
type RoadTypeCategory string

const (
	RoadTypeHighway RoadTypeCategory = "highway"
	RoadTypeBridge  RoadTypeCategory = "bridge"
	RoadTypeRailway RoadTypeCategory = "railway"
	RoadTypeTunnel  RoadTypeCategory = "tunnel"
	RoadTypeOther   RoadTypeCategory = "other"
)

// Source literals. Publisher types are not validated against this set;
// an unexpected value forms its own group downstream.
const (
	ProvinceUnknown = "未知"

	PublisherGovernment = "政府官方账号"
	PublisherNewsMedia  = "新闻媒体"
	PublisherSelfMedia  = "自媒体"

	PublishFormExclusive = "独家"
	VideoPresent         = "有"

	LocationGuangdong    = "广东"
	LocationNonGuangdong = "非广东"
)

// AccidentData holds the accident sheet columns as they appear in the source.
type AccidentData struct {
	RoadType            string  `json:"road_type"`
	AccidentTime        string  `json:"accident_time"`
	AccidentLocation    string  `json:"accident_location"`
	InjuryStatistics    string  `json:"injury_statistics"`
	AccidentReport      string  `json:"accident_report"`
	ConstructionCompany *string `json:"construction_company"`
	CompletionTime      *string `json:"completion_time"`
	NormalLifespan      *string `json:"normal_lifespan"`
	MaintenanceCycle    *string `json:"maintenance_cycle"`
	TimeSinceCompletion *string `json:"time_since_completion"`
	URL                 string  `json:"url"`
	Error               *string `json:"error"`
}

// ProcessedAccidentRecord is one accident row plus its derived fields.
type ProcessedAccidentRecord struct {
	AccidentData

	ID               string           `json:"id"`
	ParsedDate       *time.Time       `json:"parsedDate"`
	Province         string           `json:"province"`
	Casualties       int              `json:"casualties"`
	RoadTypeCategory RoadTypeCategory `json:"roadTypeCategory"`
}

// MediaData holds the media-coverage sheet columns as they appear in the source.
// PublishTime is a spreadsheet serial date.
type MediaData struct {
	ArticleCharacterCount int      `json:"article_character_count"`
	PublisherIDLocation   string   `json:"publisher_id_location"`
	PublishTime           *float64 `json:"publish_time"`
	PublisherName         string   `json:"publisher_name"`
	PublisherType         string   `json:"publisher_type"`
	PublishFormType       string   `json:"publish_form_type"`
	ContentType           string   `json:"content_type"`
	OnSiteVideo           string   `json:"on_site_video"`
	URL                   string   `json:"url"`
	Error                 *string  `json:"error"`
}

// ProcessedMediaRecord is one media row plus its derived fields.
type ProcessedMediaRecord struct {
	MediaData

	ID                 string     `json:"id"`
	ParsedDate         *time.Time `json:"parsedDate"`
	IsGovernmentSource bool       `json:"isGovernmentSource"`
	HasVideo           bool       `json:"hasVideo"`
}

// ProcessedArticle is the article view of a media row used by the coverage
// timeline. PublishTimeFormatted is empty when PublishTime is nil.
type ProcessedArticle struct {
	ID                   string     `json:"id"`
	CharacterCount       int        `json:"characterCount"`
	PublisherLocation    string     `json:"publisherLocation"`
	PublishTime          *time.Time `json:"publishTime"`
	PublishTimeFormatted string     `json:"publishTimeFormatted"`
	PublisherName        string     `json:"publisherName"`
	PublisherType        string     `json:"publisherType"`
	PublishFormType      string     `json:"publishFormType"`
	ContentType          string     `json:"contentType"`
	HasVideo             bool       `json:"hasVideo"`
	URL                  string     `json:"url"`
}

// AccidentStatistics summarizes a processed accident snapshot.
type AccidentStatistics struct {
	TotalAccidents  int                       `json:"totalAccidents"`
	TotalCasualties int                       `json:"totalCasualties"`
	ByProvince      map[string]int            `json:"byProvince"`
	ByRoadType      map[string]int            `json:"byRoadType"`
	ByYear          map[string]int            `json:"byYear"`
	RecentAccidents []ProcessedAccidentRecord `json:"recentAccidents"`
}

// MediaStatistics summarizes a processed media snapshot by raw column values.
type MediaStatistics struct {
	TotalArticles     int            `json:"totalArticles"`
	ByPublisherType   map[string]int `json:"byPublisherType"`
	ByLocation        map[string]int `json:"byLocation"`
	WithVideo         int            `json:"withVideo"`
	GovernmentSources int            `json:"governmentSources"`
	AverageLength     int            `json:"averageLength"`
}

// DailyStats is one day bucket of the coverage timeline.
type DailyStats struct {
	Date     string             `json:"date"`
	Count    int                `json:"count"`
	Articles []ProcessedArticle `json:"articles"`
}

// PeakDay is the day bucket with the most articles.
type PeakDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// PublisherTypeStats is one slice of the publisher-type distribution.
type PublisherTypeStats struct {
	Type       string `json:"type"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// LocationStats is one slice of the Guangdong / non-Guangdong distribution.
type LocationStats struct {
	Location   string `json:"location"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// ExclusiveStats counts first-publication articles.
type ExclusiveStats struct {
	TotalExclusive      int `json:"totalExclusive"`
	ExclusiveByMedia    int `json:"exclusiveByMedia"`
	ExclusivePercentage int `json:"exclusivePercentage"`
}

// VideoStats counts articles carrying on-site video.
type VideoStats struct {
	TotalWithVideo  int `json:"totalWithVideo"`
	VideoPercentage int `json:"videoPercentage"`
}

// Coverage is the full set of timeline statistics for the media dataset.
type Coverage struct {
	Articles           []ProcessedArticle   `json:"articles"`
	DailyStats         []DailyStats         `json:"dailyStats"`
	PublisherTypeStats []PublisherTypeStats `json:"publisherTypeStats"`
	LocationStats      []LocationStats      `json:"locationStats"`
	TotalArticles      int                  `json:"totalArticles"`
	PeakDay            PeakDay              `json:"peakDay"`
	ExclusiveStats     ExclusiveStats       `json:"exclusiveStats"`
	VideoStats         VideoStats           `json:"videoStats"`
}
