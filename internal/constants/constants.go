package constants

import "time"

var CacheTTL = struct {
	Sufficiency time.Duration
	Enrichment  time.Duration
	FeatureList time.Duration
	Cleanup     time.Duration
}{
	Sufficiency: 1 * time.Hour,    // 1시간 - 제목별 충분성 판정
	Enrichment:  1 * time.Hour,    // 1시간 - 제목별 보강 정보
	FeatureList: 5 * time.Minute,  // 5분 - MCP 도구 목록
	Cleanup:     10 * time.Minute, // 메모리 캐시 정리 주기
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
	KeyPrefix    string
}{
	ReadyTimeout: 5 * time.Second,
	KeyPrefix:    "readersim:",
}

var PostgresPool = struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}{
	MaxOpenConns:    10,              // 실행 기록 저장소 동시 연결 상한
	MaxIdleConns:    2,               // 유휴 연결 유지 개수
	ConnMaxLifetime: 5 * time.Minute, // 연결 재생성 주기
	PingTimeout:     5 * time.Second, // 시작 시 연결 확인
}

var LLMDefaults = struct {
	APIURL      string
	Model       string
	Provider    string
	Timeout     time.Duration
	Temperature float64
}{
	APIURL:      "https://api.siliconflow.cn/v1/chat/completions",
	Model:       "THUDM/GLM-4-9B-0414",
	Provider:    "openai",
	Timeout:     60 * time.Second,
	Temperature: 0.7,
}

var MCPDefaults = struct {
	URL             string
	Timeout         time.Duration
	ProtocolVersion string
	ClientName      string
	ClientVersion   string
}{
	URL:             "http://localhost:2035",
	Timeout:         30 * time.Second,
	ProtocolVersion: "2024-11-05",
	ClientName:      "readersim",
	ClientVersion:   "1.0.0",
}

// Tool names are matched after lowercasing.
var ToolNames = struct {
	BrowserSearch  []string
	DatabaseQuery  string
	DatabaseListDB string
}{
	BrowserSearch: []string{
		"browser.browser_search",
		"browser_search",
		"browser__browser_search",
		"browser/browser_search",
		"browser:browser_search",
	},
	DatabaseQuery:  "query_databases",
	DatabaseListDB: "get_database_names",
}

var NewsQuery = struct {
	Windows []int
	Limit   int
}{
	Windows: []int{1, 7, 14}, // 조회 가능한 기간(일)
	Limit:   100,             // 한 번에 가져오는 기사 수
}

var AIInputLimits = struct {
	MaxTitleLength     int
	MaxEnrichmentWords int
	MaxEnrichmentRunes int
	MaxReasonLength    int
	VariantCount       int
}{
	MaxTitleLength:     500,
	MaxEnrichmentWords: 200,
	MaxEnrichmentRunes: 4000,
	MaxReasonLength:    200,
	VariantCount:       5,
}

var ScoreRange = struct {
	Min           int
	Max           int
	FallbackMin   int
	FallbackMax   int
	FallbackFixed int
}{
	Min:           1,
	Max:           10,
	FallbackMin:   7,
	FallbackMax:   9,
	FallbackFixed: 7,
}

var RetryConfig = struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	Jitter:      250 * time.Millisecond,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	RateLimitTimeout time.Duration
}{
	FailureThreshold: 5,                // 5회 연속 실패 시 Circuit OPEN
	ResetTimeout:     30 * time.Second, // 기본 재시도 대기 시간
	RateLimitTimeout: 1 * time.Minute,  // 429 전용 타임아웃
}

var PipelineConfig = struct {
	ProvisionalSteps int
	ResetDelay       time.Duration
	Concurrency      int
}{
	ProvisionalSteps: 5,
	ResetDelay:       2 * time.Second,
	Concurrency:      1,
}

var ServerConfig = struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	WriteWait         time.Duration
}{
	Addr:              ":8080",
	ReadHeaderTimeout: 10 * time.Second,
	ShutdownTimeout:   10 * time.Second,
	WriteWait:         10 * time.Second,
}

var ReportConfig = struct {
	HighTierMin   float64
	MediumTierMin float64
	TopTags       int
}{
	HighTierMin:   8,
	MediumTierMin: 6,
	TopTags:       5,
}
