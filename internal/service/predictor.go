package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"skyvision/internal/dto"
	"skyvision/internal/logger"
	"skyvision/internal/metrics"
	"skyvision/internal/model"
	"skyvision/internal/repository"
	"skyvision/internal/service/ai"
	"skyvision/internal/service/storage"
)

// ErrHistoryDisabled is returned by history queries when no database is configured.
var ErrHistoryDisabled = errors.New("prediction history is not available")

// ErrInvalidFilename rejects names that cannot denote a stored upload.
var ErrInvalidFilename = errors.New("invalid filename")

var ErrPredictionNotFound = errors.New("prediction not found")

// Notifier receives serialized events for live viewers.
type Notifier interface {
	Broadcast(message []byte)
}

// Predictor runs the upload → inference → response pipeline.
type Predictor struct {
	handle      *ai.Handle
	store       *storage.Store
	predictions repository.PredictionRepository
	detections  repository.DetectionRepository
	notifier    Notifier
	metrics     *metrics.Metrics
	logger      *logger.Logger
	now         func() time.Time
}

// Options wires the optional collaborators of a Predictor. Nil fields disable
// the matching side effect.
type Options struct {
	Predictions repository.PredictionRepository
	Detections  repository.DetectionRepository
	Notifier    Notifier
	Metrics     *metrics.Metrics
}

func NewPredictor(handle *ai.Handle, store *storage.Store, logger *logger.Logger, opts Options) *Predictor {
	return &Predictor{
		handle:      handle,
		store:       store,
		predictions: opts.Predictions,
		detections:  opts.Detections,
		notifier:    opts.Notifier,
		metrics:     opts.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Handle returns the model handle the predictor was built with.
func (p *Predictor) Handle() *ai.Handle {
	return p.handle
}

// Predict validates the uploaded image, runs the model, renders the result and
// returns the success payload. Every failure is a *Error.
func (p *Predictor) Predict(ctx context.Context, form *multipart.Form) (*dto.PredictResponse, error) {
	response, err := p.predict(ctx, form)
	if err != nil {
		p.metrics.ObservePrediction(KindOf(err).String())
		return nil, err
	}
	p.metrics.ObservePrediction("success")
	return response, nil
}

func (p *Predictor) predict(ctx context.Context, form *multipart.Form) (*dto.PredictResponse, error) {
	if !p.handle.Loaded() {
		p.logger.Error("Prediction rejected: %v", p.handle.Err())
		return nil, newError(KindServiceUnavailable, MessageModelNotLoaded)
	}

	header, err := ValidateUpload(form)
	if err != nil {
		p.logger.Warning("Upload rejected: %v", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, processingError(err)
	}

	alloc := storage.Allocate(header.Filename, p.now())

	file, err := header.Open()
	if err != nil {
		p.logger.Error("Failed to open upload %s: %v", header.Filename, err)
		return nil, processingError(err)
	}
	defer file.Close()

	uploadPath, _, err := p.store.SaveUpload(file, alloc.Name())
	if err != nil {
		p.logger.Error("Failed to save upload %s: %v", alloc.Name(), err)
		return nil, processingError(err)
	}

	resultPath := p.store.ResultPath(alloc.ResultName())

	detections, size, err := p.process(uploadPath, resultPath)
	if err != nil {
		p.logger.Error("Object detection failed for %s: %v", alloc.Name(), err)
		p.cleanup(uploadPath, resultPath)
		return nil, processingError(err)
	}

	stats := BuildStats(detections, p.handle)
	response := BuildResponse(p.store, alloc, stats, size)

	p.logger.Info("Processed %s (%s): %d detections", alloc.Name(), header.Filename, response.TotalDetections)

	p.record(header.Filename, alloc, response, detections)
	p.notify(response)
	p.metrics.ObserveDetections(stats)

	return response, nil
}

// process runs inference and rendering and returns the upload size on disk.
func (p *Predictor) process(uploadPath, resultPath string) ([]ai.Detection, int64, error) {
	detector := p.handle.Model()

	start := time.Now()
	detections, err := detector.Predict(uploadPath)
	if err != nil {
		return nil, 0, err
	}

	if err := detector.Render(uploadPath, resultPath, detections); err != nil {
		return nil, 0, fmt.Errorf("render result: %w", err)
	}
	p.metrics.ObserveInference(time.Since(start))

	size, err := p.store.FileSize(uploadPath)
	if err != nil {
		return nil, 0, fmt.Errorf("stat upload: %w", err)
	}

	return detections, size, nil
}

// cleanup removes artifacts of a failed request. Failures are only logged.
func (p *Predictor) cleanup(paths ...string) {
	for _, path := range paths {
		if err := p.store.Remove(path); err != nil {
			p.logger.Warning("Failed to clean up %s: %v", path, err)
		}
	}
}

// record stores the prediction in the history database, if any.
func (p *Predictor) record(originalName string, alloc storage.Allocation, response *dto.PredictResponse, detections []ai.Detection) {
	if p.predictions == nil {
		return
	}

	id, err := p.predictions.Insert(&model.Prediction{
		Filename:        alloc.Name(),
		OriginalName:    originalName,
		ResultFilename:  alloc.ResultName(),
		Timestamp:       time.Unix(alloc.Timestamp, 0),
		UploadPath:      response.UploadedImageURL,
		ResultPath:      response.ResultImageURL,
		FileSize:        response.FileSize,
		TotalDetections: response.TotalDetections,
	})
	if err != nil {
		p.logger.Warning("Failed to record prediction %s: %v", alloc.Name(), err)
		return
	}

	if p.detections == nil || len(detections) == 0 {
		return
	}

	rows := make([]model.Detection, 0, len(detections))
	for _, d := range detections {
		rows = append(rows, model.Detection{
			PredictionID: id,
			ClassID:      d.ClassID,
			ClassName:    p.handle.ClassName(d.ClassID),
			X:            d.Box.Min.X,
			Y:            d.Box.Min.Y,
			Width:        d.Box.Dx(),
			Height:       d.Box.Dy(),
			Confidence:   float64(d.Confidence),
		})
	}

	if err := p.detections.InsertBatch(rows); err != nil {
		p.logger.Warning("Failed to record detections for %s: %v", alloc.Name(), err)
	}
}

// notify broadcasts the prediction to live viewers.
func (p *Predictor) notify(response *dto.PredictResponse) {
	if p.notifier == nil {
		return
	}

	message, err := json.Marshal(dto.PredictionEvent{
		Type:             "prediction",
		Filename:         response.Filename,
		UploadedImageURL: response.UploadedImageURL,
		ResultImageURL:   response.ResultImageURL,
		DetectionStats:   response.DetectionStats,
		TotalDetections:  response.TotalDetections,
		Timestamp:        response.Timestamp,
	})
	if err != nil {
		p.logger.Warning("Failed to encode prediction event: %v", err)
		return
	}

	p.notifier.Broadcast(message)
}

// Delete removes an upload, its paired result and its history row. Either the
// upload or the result name is accepted. It reports whether anything existed
// under that name.
func (p *Predictor) Delete(filename string) (bool, error) {
	name, row, err := p.resolve(filepath.Base(filename))
	if err != nil {
		return false, err
	}

	resultName := storage.ResultPrefix + name
	if row != nil && row.ResultFilename != "" {
		resultName = filepath.Base(row.ResultFilename)
	}

	found := row != nil
	for _, path := range []string{p.store.UploadPath(name), p.store.ResultPath(resultName)} {
		if _, err := p.store.FileSize(path); err == nil {
			found = true
		}
		if err := p.store.Remove(path); err != nil {
			p.logger.Error("Failed to delete file %s: %v", path, err)
		}
	}

	if row != nil {
		if err := p.predictions.DeleteByFilename(name); err != nil {
			return found, fmt.Errorf("delete prediction %s: %w", name, err)
		}
	}

	if found {
		p.logger.Info("Deleted prediction: %s", name)
	}
	return found, nil
}

// resolve maps a requested name to the stored upload it refers to. The name is
// taken as is when an upload or history row exists under it; otherwise a
// leading result prefix is stripped.
func (p *Predictor) resolve(name string) (string, *model.Prediction, error) {
	if !validName(name) {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	row, err := p.lookup(name)
	if err != nil {
		return "", nil, err
	}
	if row != nil || !strings.HasPrefix(name, storage.ResultPrefix) {
		return name, row, nil
	}
	if _, err := p.store.FileSize(p.store.UploadPath(name)); err == nil {
		return name, nil, nil
	}

	upload := strings.TrimPrefix(name, storage.ResultPrefix)
	if !validName(upload) {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	row, err = p.lookup(upload)
	if err != nil {
		return "", nil, err
	}
	return upload, row, nil
}

func (p *Predictor) lookup(name string) (*model.Prediction, error) {
	if p.predictions == nil {
		return nil, nil
	}
	row, err := p.predictions.GetByFilename(name)
	if err != nil {
		return nil, fmt.Errorf("look up prediction %s: %w", name, err)
	}
	return row, nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && name != string(filepath.Separator)
}

// Detail returns one stored prediction with its individual detections.
func (p *Predictor) Detail(filename string) (*dto.PredictionDetail, error) {
	if p.predictions == nil {
		return nil, ErrHistoryDisabled
	}

	name, row, err := p.resolve(filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrPredictionNotFound, name)
	}

	detail := &dto.PredictionDetail{
		Prediction: dto.PredictionInfo{
			Filename:         row.Filename,
			UploadedImageURL: p.store.UploadURL(row.Filename),
			ResultImageURL:   p.store.ResultURL(row.ResultFilename),
			Date:             row.Timestamp.Local(),
			FileSize:         row.FileSize,
			DetectionStats:   map[string]int{},
			TotalDetections:  row.TotalDetections,
		},
		OriginalName: row.OriginalName,
		Detections:   []model.Detection{},
	}

	if p.detections != nil {
		rows, err := p.detections.GetByPredictionID(row.ID)
		if err != nil {
			return nil, fmt.Errorf("query detections for %s: %w", name, err)
		}
		for _, d := range rows {
			detail.Prediction.DetectionStats[d.ClassName]++
		}
		detail.Detections = append(detail.Detections, rows...)
	}

	return detail, nil
}

// History returns one page of stored predictions, newest first.
func (p *Predictor) History(filter *dto.PredictionFilters, page int) (*dto.PredictionsData, error) {
	if p.predictions == nil {
		return nil, ErrHistoryDisabled
	}

	rows, err := p.predictions.GetAll(filter)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}

	total, err := p.predictions.GetTotalCount(filter)
	if err != nil {
		p.logger.Error("Error counting predictions: %v", err)
		total = len(rows)
	}

	infos := make([]dto.PredictionInfo, 0, len(rows))
	for _, row := range rows {
		stats := map[string]int{}
		if p.detections != nil {
			counts, err := p.detections.GetClassCountsByPredictionID(row.ID)
			if err != nil {
				p.logger.Error("Error getting detections for prediction %d: %v", row.ID, err)
			} else {
				stats = counts
			}
		}

		infos = append(infos, dto.PredictionInfo{
			Filename:         row.Filename,
			UploadedImageURL: p.store.UploadURL(row.Filename),
			ResultImageURL:   p.store.ResultURL(row.ResultFilename),
			Date:             row.Timestamp.Local(),
			FileSize:         row.FileSize,
			DetectionStats:   stats,
			TotalDetections:  row.TotalDetections,
		})
	}

	limit := len(rows)
	if filter != nil && filter.Limit > 0 {
		limit = filter.Limit
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return &dto.PredictionsData{
		Predictions: infos,
		Length:      total,
		TotalPages:  totalPages,
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

// Stats summarizes the stored history and the disk usage of both directories.
func (p *Predictor) Stats() (*dto.PredictionStats, error) {
	if p.predictions == nil {
		return nil, ErrHistoryDisabled
	}

	total, err := p.predictions.GetTotalCount(nil)
	if err != nil {
		return nil, fmt.Errorf("count predictions: %w", err)
	}

	counts := map[string]int{}
	if p.detections != nil {
		counts, err = p.detections.GetClassCounts()
		if err != nil {
			return nil, fmt.Errorf("count detections: %w", err)
		}
	}

	size, err := p.store.Size()
	if err != nil {
		p.logger.Error("Error getting storage size: %v", err)
		size = 0
	}

	return &dto.PredictionStats{
		TotalPredictions: total,
		TotalDetections:  TotalDetections(counts),
		ClassCounts:      counts,
		StorageBytes:     size,
	}, nil
}
