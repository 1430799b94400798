package config

import (
	"testing"
	"time"

	"kismarket/kis"

	"github.com/stretchr/testify/assert"
)

const fullYaml = `
log: debug

app:
  port: 9000

collector:
  enabled: true
  codes:
    - "005930"

kis:
  api:
    appKey: my-app-key
    appSecret: my-app-secret
    accountNumber: 12345678-01
    environment: real
    timeout:
      connectionTimeoutMs: 3000
      readTimeoutMs: 10000
      writeTimeoutMs: 10000
    rateLimit:
      requestsPerMinute: 15
      requestsPerDay: 5000
      maxConcurrentConnections: 3
`

func TestParse(t *testing.T) {

	t.Run("전체 설정", func(t *testing.T) {
		conf, err := parse([]byte(fullYaml))

		assert.NoError(t, err)
		assert.Equal(t, 9000, conf.App.Port)
		assert.Equal(t, []string{"005930"}, conf.Collector.Codes)
		assert.Equal(t, "my-app-key", conf.Kis.Api.AppKey)

		kc := conf.KisConfig()
		assert.Equal(t, kis.EnvReal, kc.Env)
		assert.Equal(t, 3*time.Second, kc.Timeout.Connect)
		assert.Equal(t, 15, kc.RateLimit.RequestsPerMinute)
	})

	t.Run("기본값 적용", func(t *testing.T) {
		conf, err := parse([]byte(`
kis:
  api:
    appKey: k
    appSecret: s
`))

		assert.NoError(t, err)
		assert.Equal(t, "info", conf.Log)
		assert.Equal(t, 8080, conf.App.Port)
		assert.Equal(t, 5, len(conf.Collector.Codes))
	})

	t.Run("필수 키 누락", func(t *testing.T) {
		_, err := parse([]byte(`
kis:
  api:
    appKey: k
`))
		assert.Error(t, err)
	})

	t.Run("잘못된 환경 값", func(t *testing.T) {
		_, err := parse([]byte(`
kis:
  api:
    appKey: k
    appSecret: s
    environment: staging
`))
		assert.Error(t, err)
	})
}

func TestEnvironmentUrlResolution(t *testing.T) {

	t.Run("모의투자 기본 URL", func(t *testing.T) {
		conf, err := parse([]byte(`
kis:
  api:
    appKey: k
    appSecret: s
    environment: mock
`))
		assert.NoError(t, err)

		client, err := kis.NewClient(conf.KisConfig())
		assert.NoError(t, err)
		assert.NotNil(t, client.Quotes)
	})
}
