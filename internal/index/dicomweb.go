package index

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DICOM JSON attribute keys used by QIDO responses.
const (
	qidoTagSOPInstanceUID    = "00080018"
	qidoTagStudyInstanceUID  = "0020000D"
	qidoTagSeriesInstanceUID = "0020000E"
)

type qidoAttribute struct {
	Value []string `json:"Value"`
}

// DICOMWebRepository mirrors inserted objects to a DICOMweb server and
// keeps a local manifest of the files it uploaded. Lookups consult the
// manifest first and fall back to a QIDO search, in which case the returned
// location is the instance's WADO-RS URI rather than a local path.
type DICOMWebRepository struct {
	client *resty.Client
	logger *zap.Logger

	mu     sync.RWMutex
	byPath map[string]Record
}

func NewDICOMWebRepository(baseURL string, logger *zap.Logger) *DICOMWebRepository {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/dicom+json")

	return &DICOMWebRepository{
		client: client,
		logger: logger,
		byPath: make(map[string]Record),
	}
}

func (r *DICOMWebRepository) Insert(ctx context.Context, path string) error {
	rec, err := recordFromFile(path)
	if err != nil {
		return err
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	// STOW-RS wants a multipart/related body with one application/dicom
	// part per instance.
	boundary := uuid.NewString()
	var payload bytes.Buffer
	payload.WriteString("--" + boundary + "\r\n")
	payload.WriteString("Content-Type: application/dicom\r\n\r\n")
	payload.Write(body)
	payload.WriteString("\r\n--" + boundary + "--\r\n")

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", fmt.Sprintf(`multipart/related; type="application/dicom"; boundary=%s`, boundary)).
		SetBody(payload.Bytes()).
		Post("/studies")
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", path, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("failed to store %s: server returned %d", path, resp.StatusCode())
	}

	r.mu.Lock()
	for p, existing := range r.byPath {
		if existing.SOPInstanceUID == rec.SOPInstanceUID && p != path {
			delete(r.byPath, p)
		}
	}
	r.byPath[path] = rec
	r.mu.Unlock()

	r.logger.Info("Stored DICOM file",
		zap.String("path", rec.Path),
		zap.String("sop_instance_uid", rec.SOPInstanceUID),
	)
	return nil
}

func (r *DICOMWebRepository) FileForInstance(ctx context.Context, sopInstanceUID string) (string, error) {
	r.mu.RLock()
	for _, rec := range r.byPath {
		if rec.SOPInstanceUID == sopInstanceUID {
			r.mu.RUnlock()
			return rec.Path, nil
		}
	}
	r.mu.RUnlock()

	var results []map[string]qidoAttribute
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("SOPInstanceUID", sopInstanceUID).
		SetResult(&results).
		Get("/instances")
	if err != nil {
		return "", fmt.Errorf("failed to query instance %s: %w", sopInstanceUID, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("failed to query instance %s: server returned %d", sopInstanceUID, resp.StatusCode())
	}
	if len(results) == 0 {
		return "", ErrNotFound
	}

	uri, ok := wadoURI(results[0])
	if !ok {
		return "", fmt.Errorf("failed to query instance %s: incomplete QIDO match", sopInstanceUID)
	}
	return r.client.BaseURL + uri, nil
}

func (r *DICOMWebRepository) SeriesForFile(ctx context.Context, path string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byPath[path]
	if !ok {
		return "", ErrNotFound
	}
	return rec.SeriesInstanceUID, nil
}

func (r *DICOMWebRepository) FilesForSeries(ctx context.Context, seriesInstanceUID string) ([]string, error) {
	r.mu.RLock()
	var paths []string
	for _, rec := range r.byPath {
		if rec.SeriesInstanceUID == seriesInstanceUID {
			paths = append(paths, rec.Path)
		}
	}
	r.mu.RUnlock()
	if len(paths) > 0 {
		sort.Strings(paths)
		return paths, nil
	}

	var results []map[string]qidoAttribute
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("SeriesInstanceUID", seriesInstanceUID).
		SetResult(&results).
		Get("/instances")
	if err != nil {
		return nil, fmt.Errorf("failed to query series %s: %w", seriesInstanceUID, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to query series %s: server returned %d", seriesInstanceUID, resp.StatusCode())
	}

	for _, match := range results {
		if uri, ok := wadoURI(match); ok {
			paths = append(paths, r.client.BaseURL+uri)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// wadoURI builds the WADO-RS retrieve path for one QIDO match.
func wadoURI(match map[string]qidoAttribute) (string, bool) {
	study := firstValue(match, qidoTagStudyInstanceUID)
	series := firstValue(match, qidoTagSeriesInstanceUID)
	instance := firstValue(match, qidoTagSOPInstanceUID)
	if study == "" || series == "" || instance == "" {
		return "", false
	}
	return fmt.Sprintf("/studies/%s/series/%s/instances/%s", study, series, instance), true
}

func firstValue(match map[string]qidoAttribute, key string) string {
	if attr, ok := match[key]; ok && len(attr.Value) > 0 {
		return attr.Value[0]
	}
	return ""
}
