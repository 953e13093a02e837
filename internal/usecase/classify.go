package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/trashvision/internal/classifier"
	"github.com/example/trashvision/internal/logging"
	"github.com/example/trashvision/internal/pipeline"
	"github.com/example/trashvision/internal/repository"
)

// Repository defines the persistence operations needed by the use case.
type Repository interface {
	SaveLog(ctx context.Context, log *repository.ClassificationLog) error
	FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*repository.ClassificationLog, error)
	FindLatestByHash(ctx context.Context, userID, hash string) (*repository.ClassificationLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// ClassifyUseCase orchestrates caching, provider calls, the classification
// pipeline, and persistence for the classification flow.
type ClassifyUseCase struct {
	repo           Repository
	cache          Cache
	providers      []classifier.Client
	pipe           *pipeline.Pipeline
	logger         *zap.Logger
	cacheTTL       time.Duration
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewClassifyUseCase constructs a new use case instance. Providers are
// consulted in order and their predictions merged; the request degrades to
// the fallback path only when every provider fails.
func NewClassifyUseCase(repo Repository, cache Cache, providers []classifier.Client, pipe *pipeline.Pipeline, logger *zap.Logger) *ClassifyUseCase {
	return &ClassifyUseCase{
		repo:           repo,
		cache:          cache,
		providers:      providers,
		pipe:           pipe,
		logger:         logger.Named("classify_usecase"),
		cacheTTL:       time.Hour,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// ClassifyImage runs one classification request end to end and returns the
// request id alongside the assembled result. The result is always well
// formed; an error return means persistence failed, not the classifiers.
func (uc *ClassifyUseCase) ClassifyImage(ctx context.Context, userID string, image []byte) (string, pipeline.Result, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.classify_image", requestID)

	hash := sha1.Sum(image)
	hashHex := hex.EncodeToString(hash[:])
	cacheKey := "classification:" + hashHex

	if result, ok := uc.lookupCached(ctx, requestID, cacheKey); ok {
		opLogger.Info("serving cached classification", zap.String("sha1", hashHex))
		return requestID, result, nil
	}

	if result, ok := uc.lookupPersisted(ctx, requestID, userID, hashHex, cacheKey); ok {
		opLogger.Info("serving previously classified image", zap.String("sha1", hashHex))
		return requestID, result, nil
	}

	raw, callErr := uc.collectPredictions(ctx, opLogger, image)
	result := uc.pipe.Assemble(raw, callErr)

	log := buildLog(requestID, userID, hashHex, result)
	if err := uc.repo.SaveLog(ctx, log); err != nil {
		wrapped := logging.NewOperationError("usecase.save_log", requestID, err)
		opLogger.Error("failed to persist classification log", zap.Error(wrapped))
		return "", pipeline.Result{}, wrapped
	}

	if result.Source == pipeline.SourcePrimary {
		uc.cacheResult(ctx, requestID, cacheKey, result)
	}

	return requestID, result, nil
}

// collectPredictions merges raw predictions across configured providers. It
// returns a nil error as long as at least one provider answered; otherwise
// the most informative provider error drives the fallback path.
func (uc *ClassifyUseCase) collectPredictions(ctx context.Context, opLogger *zap.Logger, image []byte) ([]classifier.RawPrediction, error) {
	var (
		merged    []classifier.RawPrediction
		answered  bool
		lastErr   error
		configErr error
	)
	for _, provider := range uc.providers {
		raw, err := provider.Classify(ctx, image)
		if err != nil {
			if errors.Is(err, classifier.ErrUnconfigured) {
				configErr = err
				continue
			}
			opLogger.Warn("classifier provider failed",
				zap.String("provider", provider.Name()), zap.Error(err))
			lastErr = err
			continue
		}
		answered = true
		merged = append(merged, raw...)
	}

	if answered {
		return merged, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	if configErr != nil {
		return nil, configErr
	}
	return nil, classifier.ErrUnconfigured
}

func (uc *ClassifyUseCase) lookupCached(ctx context.Context, requestID, cacheKey string) (pipeline.Result, bool) {
	cached, err := uc.withRedisGet(ctx, requestID, "cache.get.classification", cacheKey)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.WithOperation(uc.logger, "cache.get.classification", requestID).Warn("failed to read cache", zap.Error(err))
		}
		return pipeline.Result{}, false
	}
	var result pipeline.Result
	if err := json.Unmarshal([]byte(cached), &result); err != nil {
		logging.WithOperation(uc.logger, "cache.get.classification", requestID).Warn("failed to decode cached result", zap.Error(err))
		return pipeline.Result{}, false
	}
	return result, true
}

func (uc *ClassifyUseCase) lookupPersisted(ctx context.Context, requestID, userID, hashHex, cacheKey string) (pipeline.Result, bool) {
	log, err := uc.repo.FindLatestByHash(ctx, userID, hashHex)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logging.WithOperation(uc.logger, "usecase.find_by_hash", requestID).Warn("duplicate lookup failed", zap.Error(err))
		}
		return pipeline.Result{}, false
	}
	// Stored fallbacks are not replayed; the providers may be healthy again.
	if log.Source != string(pipeline.SourcePrimary) {
		return pipeline.Result{}, false
	}
	var result pipeline.Result
	if err := json.Unmarshal([]byte(log.Payload), &result); err != nil {
		logging.WithOperation(uc.logger, "usecase.find_by_hash", requestID).Warn("failed to decode stored result", zap.Error(err))
		return pipeline.Result{}, false
	}
	uc.cacheResult(ctx, requestID, cacheKey, result)
	return result, true
}

func (uc *ClassifyUseCase) cacheResult(ctx context.Context, requestID, cacheKey string, result pipeline.Result) {
	serialized, err := json.Marshal(result)
	if err != nil {
		logging.WithOperation(uc.logger, "cache.set.classification", requestID).Warn("failed to serialize result", zap.Error(err))
		return
	}
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.classification", func() error {
		return uc.cache.Set(ctx, cacheKey, string(serialized), uc.cacheTTL)
	}); err != nil {
		logging.WithOperation(uc.logger, "cache.set.classification", requestID).Warn("failed to cache result", zap.Error(err))
	}
}

// GetResult loads a persisted classification by request id and rehydrates
// the result the caller originally received.
func (uc *ClassifyUseCase) GetResult(ctx context.Context, userID, requestID string) (*repository.ClassificationLog, pipeline.Result, error) {
	log, err := uc.repo.FindByRequestIDAndUser(ctx, requestID, userID)
	if err != nil {
		return nil, pipeline.Result{}, err
	}
	var result pipeline.Result
	if err := json.Unmarshal([]byte(log.Payload), &result); err != nil {
		wrapped := logging.NewOperationError("usecase.get_result", requestID, err)
		return nil, pipeline.Result{}, wrapped
	}
	return log, result, nil
}

func buildLog(requestID, userID, hashHex string, result pipeline.Result) *repository.ClassificationLog {
	log := &repository.ClassificationLog{
		RequestID: requestID,
		UserID:    userID,
		SHA1Hash:  hashHex,
		Source:    string(result.Source),
		CreatedAt: time.Now().UTC(),
	}
	if result.Error != nil {
		log.FailureReason = *result.Error
	}
	if len(result.DetectedItems) > 0 {
		log.TopType = result.DetectedItems[0].Type
		log.TopConfidence = result.DetectedItems[0].Confidence
	}
	if serialized, err := json.Marshal(result); err == nil {
		log.Payload = string(serialized)
	}
	return log
}

func (uc *ClassifyUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if errors.Is(err, redis.Nil) {
			return err
		}

		if !logging.IsTransient(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *ClassifyUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
