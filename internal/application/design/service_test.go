package design

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tattoo-ai-api/internal/domain/entity"
	infraredis "tattoo-ai-api/internal/infrastructure/persistence/redis"
	"tattoo-ai-api/internal/workflow/catalog"
	wfmodel "tattoo-ai-api/internal/workflow/model"
	"tattoo-ai-api/internal/workflow/pipeline"
	"tattoo-ai-api/internal/workflow/transfer"
	apperrors "tattoo-ai-api/pkg/errors"
	"tattoo-ai-api/pkg/logger"
)

type fakeRepo struct {
	mu        sync.Mutex
	records   []*entity.PromptRecord
	listCalls int
	createErr error
}

func (r *fakeRepo) Create(_ context.Context, rec *entity.PromptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.records = append([]*entity.PromptRecord{rec}, r.records...)
	return nil
}

func (r *fakeRepo) ListRecent(_ context.Context, userID string, limit int) ([]*entity.PromptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := []*entity.PromptRecord{}
	for _, rec := range r.records {
		if rec.UserID == userID && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type captureSink struct {
	mu      sync.Mutex
	records []*entity.PromptRecord
}

func (s *captureSink) Submit(_ context.Context, rec *entity.PromptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

type fakeInvalidator struct {
	mu    sync.Mutex
	users []string
}

func (f *fakeInvalidator) InvalidateHistory(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return nil
}

func newTestService(t *testing.T, sink RecordSink, history HistoryReader, opts Options) *Service {
	t.Helper()
	src := catalog.NewStore(catalog.MustLoadDefault())
	return NewService(
		src,
		pipeline.New(src),
		transfer.New(src, pipeline.DefaultBackend),
		sink,
		history,
		nil,
		opts,
	)
}

func userCtx(id string) context.Context {
	return logger.WithContext(context.Background(), logger.UserIDKey, id)
}

func TestService_Enhance_HandsOffRecord(t *testing.T) {
	sink := &captureSink{}
	svc := newTestService(t, sink, nil, Options{})

	res := svc.Enhance(userCtx("u1"), "rose with thorns", wfmodel.EnhancementContext{Style: "traditional"})
	require.NotNil(t, res)
	assert.GreaterOrEqual(t, res.ConfidenceScore, 60)

	require.Len(t, sink.records, 1)
	rec := sink.records[0]
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, entity.RecordKindEnhance, rec.Kind)
	assert.Equal(t, "rose with thorns", rec.OriginalPrompt)
	assert.Equal(t, res.EnhancedPrompt, rec.FinalPrompt)
	assert.Equal(t, res.ConfidenceScore, rec.Confidence)
	assert.Equal(t, res.StagesApplied, []string(rec.Applied))
	assert.Equal(t, res.Backend, rec.Backend)
}

func TestService_Enhance_AnonymousAndEmptyNotRecorded(t *testing.T) {
	sink := &captureSink{}
	svc := newTestService(t, sink, nil, Options{})

	svc.Enhance(context.Background(), "rose", wfmodel.EnhancementContext{})
	res := svc.Enhance(userCtx("u1"), "   ", wfmodel.EnhancementContext{})

	assert.Equal(t, 0, res.ConfidenceScore)
	assert.Empty(t, sink.records)
}

func TestService_Enhance_UsesHistoryForRepeatSuggestion(t *testing.T) {
	repo := &fakeRepo{}
	prev := entity.NewPromptRecord("u1", entity.RecordKindEnhance, "koi fish", "koi fish, japanese style")
	require.NoError(t, repo.Create(context.Background(), prev))

	svc := newTestService(t, &captureSink{}, NewCachedHistory(repo, nil, 0), Options{Personalize: true})

	res := svc.Enhance(userCtx("u1"), "koi fish", wfmodel.EnhancementContext{})
	assert.Contains(t, res.Suggestions, "This prompt matches an earlier request; vary the subject or style for a fresh result")
}

func TestService_Transfer_ValidationErrors(t *testing.T) {
	svc := newTestService(t, &captureSink{}, nil, Options{})

	tests := []struct {
		name   string
		req    wfmodel.StyleTransferRequest
		code   apperrors.ErrorCode
		status int
	}{
		{
			name:   "same style",
			req:    wfmodel.StyleTransferRequest{OriginalPrompt: "rose", OriginalStyle: "Traditional", TargetStyle: "traditional"},
			code:   apperrors.CodeSameStyle,
			status: 400,
		},
		{
			name:   "empty prompt",
			req:    wfmodel.StyleTransferRequest{OriginalPrompt: "  ", OriginalStyle: "traditional", TargetStyle: "realistic"},
			code:   apperrors.CodeEmptyPrompt,
			status: 400,
		},
		{
			name:   "missing target",
			req:    wfmodel.StyleTransferRequest{OriginalPrompt: "rose", OriginalStyle: "traditional"},
			code:   apperrors.CodeInvalidParam,
			status: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Transfer(userCtx("u1"), tt.req)
			assert.Nil(t, res)
			appErr := apperrors.AsAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
		})
	}
}

func TestService_Transfer_RecordsRule(t *testing.T) {
	sink := &captureSink{}
	svc := newTestService(t, sink, nil, Options{})

	res, err := svc.Transfer(userCtx("u1"), wfmodel.StyleTransferRequest{
		OriginalPrompt:  "rose with bold outlines",
		OriginalStyle:   "traditional",
		TargetStyle:     "realistic",
		TargetModel:     "realism-tier",
		PreserveSubject: true,
	})
	require.NoError(t, err)
	assert.True(t, res.RuleApplied)

	require.Len(t, sink.records, 1)
	rec := sink.records[0]
	assert.Equal(t, entity.RecordKindTransfer, rec.Kind)
	assert.Equal(t, []string{"rule:traditional->realistic"}, []string(rec.Applied))
	assert.Equal(t, "realism-tier", rec.Backend)
	assert.Equal(t, res.TransferredPrompt, rec.FinalPrompt)
}

func TestService_History(t *testing.T) {
	repo := &fakeRepo{}
	for _, p := range []string{"rose", "dagger", "swallow"} {
		require.NoError(t, repo.Create(context.Background(), entity.NewPromptRecord("u1", entity.RecordKindEnhance, p, p)))
	}
	svc := newTestService(t, NoopSink{}, NewCachedHistory(repo, nil, 0), Options{HistoryLimit: 2})

	_, err := svc.History(context.Background(), "", 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	records, err := svc.History(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "swallow", records[0].OriginalPrompt)
	assert.Equal(t, "dagger", records[1].OriginalPrompt)
}

func TestService_Recommend_Personalized(t *testing.T) {
	repo := &fakeRepo{}
	rec := entity.NewPromptRecord("u1", entity.RecordKindEnhance, "koi", "koi")
	rec.SetConfidence(92)
	rec.Backend = "artistic-tier"
	require.NoError(t, repo.Create(context.Background(), rec))

	svc := newTestService(t, NoopSink{}, NewCachedHistory(repo, nil, 0), Options{Personalize: true})
	a := svc.Analyze(context.Background(), "watercolor koi fish", wfmodel.AnalysisHints{Style: "watercolor"})

	got := svc.Recommend(userCtx("u1"), a, nil)
	assert.Equal(t, "artistic-tier", got.RecommendedModel)
	assert.Contains(t, got.Reasoning, "In your preferred models")

	anonymous := svc.Recommend(context.Background(), a, nil)
	assert.NotContains(t, anonymous.Reasoning, "In your preferred models")

	avoided := svc.Recommend(userCtx("u1"), a, &wfmodel.ModelPreferences{AvoidModels: []string{"artistic-tier"}})
	assert.NotEqual(t, "artistic-tier", avoided.RecommendedModel)
}

func TestPersonalize(t *testing.T) {
	mk := func(backend string, conf int) *entity.PromptRecord {
		r := entity.NewPromptRecord("u1", entity.RecordKindEnhance, "x", "x")
		r.Backend = backend
		r.SetConfidence(conf)
		return r
	}
	records := []*entity.PromptRecord{
		mk("artistic-tier", 90),
		mk("realism-tier", 79),
		mk("typography-tier", 80),
		mk("artistic-tier", 95),
		mk("experimental-tier", 99),
		mk("", 99),
	}
	prefs := &wfmodel.ModelPreferences{
		PreferredModels: []string{"balanced-tier"},
		AvoidModels:     []string{"experimental-tier"},
	}

	got := Personalize(records, prefs, PersonalizeThreshold)

	assert.Equal(t, []string{"balanced-tier", "artistic-tier", "typography-tier"}, got.PreferredModels)
	assert.Equal(t, []string{"experimental-tier"}, got.AvoidModels)
	assert.Equal(t, []string{"balanced-tier"}, prefs.PreferredModels, "input must not be mutated")

	assert.Nil(t, Personalize(nil, nil, PersonalizeThreshold))
}

func TestDirectSink(t *testing.T) {
	repo := &fakeRepo{}
	inv := &fakeInvalidator{}
	sink := NewDirectSink(repo, inv, time.Second)

	ctx, cancel := context.WithCancel(userCtx("u1"))
	rec := entity.NewPromptRecord("u1", entity.RecordKindEnhance, "rose", "rose, bold lines")
	sink.Submit(ctx, rec)
	// 请求结束不影响写入
	cancel()
	sink.Wait()

	require.Len(t, repo.records, 1)
	assert.Equal(t, rec.ID, repo.records[0].ID)
	assert.Equal(t, []string{"u1"}, inv.users)
}

func TestDirectSink_ErrorSkipsInvalidation(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("connection refused")}
	inv := &fakeInvalidator{}
	sink := NewDirectSink(repo, inv, time.Second)

	sink.Submit(userCtx("u1"), entity.NewPromptRecord("u1", entity.RecordKindEnhance, "rose", "rose"))
	sink.Wait()

	assert.Empty(t, repo.records)
	assert.Empty(t, inv.users)
}

type fakePublisher struct {
	mu  sync.Mutex
	ids []string
}

func (p *fakePublisher) PublishRecord(_ context.Context, rec *entity.PromptRecord) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, rec.ID)
	return "1-0", nil
}

func TestStreamSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewStreamSink(pub, 0)

	rec := entity.NewPromptRecord("u1", entity.RecordKindTransfer, "rose", "rose")
	sink.Submit(context.Background(), rec)
	sink.Wait()

	assert.Equal(t, []string{rec.ID}, pub.ids)
}

func TestCachedHistory_ReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cache := infraredis.NewCache(infraredis.NewClientFromRedis(rdb))

	repo := &fakeRepo{}
	require.NoError(t, repo.Create(context.Background(), entity.NewPromptRecord("u1", entity.RecordKindEnhance, "rose", "rose, bold")))

	h := NewCachedHistory(repo, cache, time.Minute)
	ctx := context.Background()

	first, err := h.Recent(ctx, "u1", 10)
	require.NoError(t, err)
	second, err := h.Recent(ctx, "u1", 10)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.listCalls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, mr.Exists(infraredis.HistoryKey("u1")))
	assert.NotEmpty(t, mr.HGet(infraredis.HistoryKey("u1"), "10"))

	require.NoError(t, cache.InvalidateHistory(ctx, "u1"))
	_, err = h.Recent(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

type fakeEventPublisher struct {
	channel string
	payload []byte
}

func (f *fakeEventPublisher) Publish(_ context.Context, channel string, payload []byte) (int64, error) {
	f.channel = channel
	f.payload = payload
	return 1, nil
}

func TestNotifier(t *testing.T) {
	remote := &fakeEventPublisher{}
	n := NewNotifier(remote, "events:prompt:records")

	ch, cancel := n.Subscribe(1)
	defer cancel()

	n.Publish(context.Background(), Event{Type: EventRecordLogged, RecordID: "r1", UserID: "u1"})

	select {
	case ev := <-ch:
		assert.Equal(t, "r1", ev.RecordID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	assert.Equal(t, "events:prompt:records", remote.channel)
	assert.Contains(t, string(remote.payload), `"record.logged"`)

	// 缓冲区满时不阻塞
	n.Publish(context.Background(), Event{Type: EventRecordLogged, RecordID: "r2"})
	n.Publish(context.Background(), Event{Type: EventRecordLogged, RecordID: "r3"})
}
