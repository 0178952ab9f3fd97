// Package telemetry: OpenTelemetry 트레이싱 초기화
package telemetry

// Config: OpenTelemetry 설정입니다.
type Config struct {
	Enabled        bool
	ServiceName    string // 예: "agency-dashboard"
	ServiceVersion string
	Environment    string

	// OTLPEndpoint: OTLP gRPC collector 주소 (예: "jaeger:4317")
	OTLPEndpoint string
	// OTLPInsecure: TLS 없이 연결합니다. 내부망 전용
	OTLPInsecure bool

	// SampleRate: 루트 span 샘플링 비율 (0.0 ~ 1.0)
	SampleRate float64
}

// DefaultConfig: 기본값은 비활성화 상태입니다.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		SampleRate:   1.0,
		OTLPInsecure: true,
	}
}
