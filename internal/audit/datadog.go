package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/db/models"
)

const submitLogOperation = "v2.LogsApi.SubmitLog"

// DataDogSink ships entries to the DataDog logs intake.
type DataDogSink struct {
	cfg      config.DataDog
	api      *datadogV2.LogsApi
	hostname string
}

// NewDataDogSink creates a DataDog sink.
func NewDataDogSink(cfg config.DataDog) *DataDogSink {
	return newDataDogSink(cfg, datadog.NewConfiguration())
}

// newDataDogSink creates a sink on a prepared client configuration.
func newDataDogSink(cfg config.DataDog, ddcfg *datadog.Configuration) *DataDogSink {
	if ddcfg.HTTPClient == nil {
		ddcfg.HTTPClient = &http.Client{}
	}

	if cfg.Timeout > 0 {
		ddcfg.HTTPClient.Timeout = cfg.Timeout
	}

	hostname, _ := os.Hostname()

	return &DataDogSink{
		cfg:      cfg,
		api:      datadogV2.NewLogsApi(datadog.NewAPIClient(ddcfg)),
		hostname: hostname,
	}
}

// Name implements Sink.
func (s *DataDogSink) Name() string { return SinkDataDog }

// Write implements Sink.
func (s *DataDogSink) Write(ctx context.Context, e models.AuditEntry) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("datadog: encode entry: %w", err)
	}

	ctx = context.WithValue(ctx, datadog.ContextAPIKeys, map[string]datadog.APIKey{
		"apiKeyAuth": {Key: s.cfg.APIKey},
	})

	if s.cfg.Site != "" {
		ctx = context.WithValue(ctx, datadog.ContextServerVariables, map[string]string{"site": s.cfg.Site})
	}

	item := datadogV2.HTTPLogItem{
		Ddsource: datadog.PtrString(s.cfg.Source),
		Ddtags: datadog.PtrString(
			"allowed:" + strconv.FormatBool(e.Allowed) + ",reason:" + reasonTag(e.Reason),
		),
		Hostname: datadog.PtrString(s.hostname),
		Message:  string(msg),
		Service:  datadog.PtrString(s.cfg.ServiceName),
	}

	_, resp, err := s.api.SubmitLog(ctx, []datadogV2.HTTPLogItem{item}, *datadogV2.NewSubmitLogOptionalParameters())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return fmt.Errorf("datadog: submit log: %w", err)
	}

	return nil
}

func reasonTag(reason string) string {
	if reason == "" {
		return "none"
	}

	return reason
}
