package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"dietflow/internal/core/cache"
	"dietflow/internal/core/meal"
	"dietflow/internal/infrastructure/config"
	"dietflow/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrBodyTooLarge 資料來源內容超過上限
var ErrBodyTooLarge = errors.New("source body too large")

// CSVSource 從 HTTP(S) 或本機檔案讀取 CSV
type CSVSource struct {
	location string
	client   *resty.Client
	cache    cache.Store
	maxBody  int64
}

// NewCSVSource 創建 CSV 資料來源
// store 為 nil 時不使用快取。
func NewCSVSource(location string, cfg *config.SourceConfig, store cache.Store) *CSVSource {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "text/csv, text/plain, */*").
		SetHeader("Cache-Control", "no-store")

	return &CSVSource{
		location: strings.TrimSpace(location),
		client:   client,
		cache:    store,
		maxBody:  cfg.MaxBodyBytes,
	}
}

// Resource 資料來源識別
func (s *CSVSource) Resource() string {
	return s.location
}

// FetchRows 讀取並解析 CSV
func (s *CSVSource) FetchRows(ctx context.Context) ([]meal.RawRecord, error) {
	start := time.Now()

	body, err := s.body(ctx)
	if err != nil {
		common.LogFetch(s.location, 0, time.Since(start), err)
		return nil, err
	}

	rows, err := ParseCSV(strings.NewReader(body))
	if err != nil {
		err = &FetchError{Resource: s.location, Err: err}
		common.LogFetch(s.location, 0, time.Since(start), err)
		return nil, err
	}

	common.LogFetch(s.location, len(rows), time.Since(start), nil)
	return rows, nil
}

// body 取得原始內容，優先使用快取
func (s *CSVSource) body(ctx context.Context) (string, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.location); err == nil {
			return cached, nil
		}
	}

	var (
		body string
		err  error
	)
	if isHTTP(s.location) {
		body, err = s.fetchHTTP(ctx)
	} else {
		body, err = s.readFile(ctx)
	}
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.location, body); err != nil {
			common.LogWarn("資料來源快取寫入失敗", zap.String("resource", s.location), zap.Error(err))
		}
	}
	return body, nil
}

func (s *CSVSource) fetchHTTP(ctx context.Context) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.location)
	if err != nil {
		return "", &FetchError{Resource: s.location, Err: err}
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return "", &FetchError{
			Resource: s.location,
			Status:   resp.StatusCode(),
			Err:      fmt.Errorf("unexpected status %s", resp.Status()),
		}
	}

	body := resp.Body()
	if s.maxBody > 0 && int64(len(body)) > s.maxBody {
		return "", &FetchError{Resource: s.location, Err: ErrBodyTooLarge}
	}
	return string(bytes.TrimPrefix(body, []byte(utf8BOM))), nil
}

func (s *CSVSource) readFile(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &FetchError{Resource: s.location, Err: err}
	}

	path, err := localPath(s.location)
	if err != nil {
		return "", &FetchError{Resource: s.location, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", &FetchError{Resource: s.location, Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	if s.maxBody > 0 {
		r = io.LimitReader(f, s.maxBody+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &FetchError{Resource: s.location, Err: err}
	}
	if s.maxBody > 0 && int64(len(data)) > s.maxBody {
		return "", &FetchError{Resource: s.location, Err: ErrBodyTooLarge}
	}
	return string(data), nil
}

func isHTTP(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// localPath 將 file:// URL 或一般路徑轉為檔案路徑
func localPath(location string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(location), "file://") {
		return location, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid file url: %w", err)
	}
	if u.Path == "" {
		return "", fmt.Errorf("empty file url path")
	}
	return u.Path, nil
}
