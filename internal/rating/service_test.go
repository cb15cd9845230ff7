package rating

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/bookman/internal/model"
)

// --- テスト用モック ---

// mockBookRepo はBookRepositoryのモック。
type mockBookRepo struct {
	upsertFn func(ctx context.Context, book model.BookSummary) error
	upserted []model.BookSummary
}

func (m *mockBookRepo) FindByID(_ context.Context, _ string) (*model.Book, error) {
	return nil, nil
}

func (m *mockBookRepo) FindByIDs(_ context.Context, _ []string) (map[string]*model.Book, error) {
	return nil, nil
}

func (m *mockBookRepo) Upsert(ctx context.Context, book model.BookSummary) error {
	m.upserted = append(m.upserted, book)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, book)
	}
	return nil
}

func (m *mockBookRepo) Search(_ context.Context, _ string, _ int) ([]*model.Book, error) {
	return nil, nil
}

func (m *mockBookRepo) ListNeedingCoverFetch(_ context.Context, _ int) ([]*model.Book, error) {
	return nil, nil
}

func (m *mockBookRepo) UpdateCoverData(_ context.Context, _ string, _ []byte, _ string) error {
	return nil
}

// mockRatingRepo はRatingRepositoryのモック。
type mockRatingRepo struct {
	findFn        func(ctx context.Context, userID, bookID string) (*model.Rating, error)
	upsertFn      func(ctx context.Context, rating *model.Rating) (*model.Rating, error)
	updateScoreFn func(ctx context.Context, userID, bookID string, score float64) error
	upserted      []*model.Rating
	scoreUpdates  []float64
}

func (m *mockRatingRepo) FindByUserAndBook(ctx context.Context, userID, bookID string) (*model.Rating, error) {
	if m.findFn != nil {
		return m.findFn(ctx, userID, bookID)
	}
	return nil, nil
}

func (m *mockRatingRepo) Upsert(ctx context.Context, rating *model.Rating) (*model.Rating, error) {
	m.upserted = append(m.upserted, rating)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, rating)
	}
	saved := *rating
	saved.ID = "rating-1"
	saved.CreatedAt = time.Now().UTC()
	saved.UpdatedAt = saved.CreatedAt
	return &saved, nil
}

func (m *mockRatingRepo) UpdateScore(ctx context.Context, userID, bookID string, score float64) error {
	m.scoreUpdates = append(m.scoreUpdates, score)
	if m.updateScoreFn != nil {
		return m.updateScoreFn(ctx, userID, bookID, score)
	}
	return nil
}

func (m *mockRatingRepo) ListRecentBookIDs(_ context.Context, _, _ string, _ int) ([]string, error) {
	return nil, nil
}

func (m *mockRatingRepo) DeleteByUserID(_ context.Context, _ string) error {
	return nil
}

// mockStatusRepo はStatusRepositoryのモック。
type mockStatusRepo struct {
	findFn   func(ctx context.Context, userID, bookID string) (*model.ReadingStatus, error)
	upserted []model.ReadingStatus
	deleted  int
}

func (m *mockStatusRepo) FindByUserAndBook(ctx context.Context, userID, bookID string) (*model.ReadingStatus, error) {
	if m.findFn != nil {
		return m.findFn(ctx, userID, bookID)
	}
	return nil, nil
}

func (m *mockStatusRepo) Upsert(_ context.Context, _, _ string, status model.ReadingStatus) error {
	m.upserted = append(m.upserted, status)
	return nil
}

func (m *mockStatusRepo) Delete(_ context.Context, _, _ string) error {
	m.deleted++
	return nil
}

func (m *mockStatusRepo) DeleteByUserID(_ context.Context, _ string) error {
	return nil
}

// mockComparisonRepo はComparisonRepositoryのモック。
type mockComparisonRepo struct {
	listFn func(ctx context.Context, userID, bookID string) ([]*model.Comparison, error)
}

func (m *mockComparisonRepo) ListInvolving(ctx context.Context, userID, bookID string) ([]*model.Comparison, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, bookID)
	}
	return nil, nil
}

func (m *mockComparisonRepo) Insert(_ context.Context, _ *model.Comparison) error {
	return nil
}

func (m *mockComparisonRepo) DeleteByUserID(_ context.Context, _ string) error {
	return nil
}

// mockRecorder はActivityRecorderのモック。
type mockRecorder struct {
	recordFn func(ctx context.Context, userID, bookID string, kind model.ActivityType, ratingID *string) error
	recorded []model.ActivityType
}

func (m *mockRecorder) Record(ctx context.Context, userID, bookID string, kind model.ActivityType, ratingID *string) error {
	m.recorded = append(m.recorded, kind)
	if m.recordFn != nil {
		return m.recordFn(ctx, userID, bookID, kind, ratingID)
	}
	return nil
}

func newTestService(bookRepo *mockBookRepo, ratingRepo *mockRatingRepo, statusRepo *mockStatusRepo, comparisonRepo *mockComparisonRepo, recorder *mockRecorder) *Service {
	return NewService(bookRepo, ratingRepo, statusRepo, comparisonRepo, recorder, nil, nil)
}

// --- SaveRating テスト ---

// TestService_SaveRating_EmptyHistoryUsesBaseScore は比較履歴のない初回評価で
// センチメントの基準スコアがそのまま保存されることをテストする。
func TestService_SaveRating_EmptyHistoryUsesBaseScore(t *testing.T) {
	bookRepo := &mockBookRepo{}
	ratingRepo := &mockRatingRepo{}
	statusRepo := &mockStatusRepo{}
	recorder := &mockRecorder{}
	svc := newTestService(bookRepo, ratingRepo, statusRepo, &mockComparisonRepo{}, recorder)

	saved, err := svc.SaveRating(context.Background(), "user-1", SaveRatingInput{
		Book:      model.BookSummary{ID: "book-1", Title: "吾輩は猫である", Author: "夏目漱石"},
		Sentiment: model.SentimentLoved,
	})
	if err != nil {
		t.Fatalf("SaveRating returned error: %v", err)
	}

	if saved.Score != 9.0 {
		t.Errorf("score = %v, want 9.0", saved.Score)
	}
	if len(bookRepo.upserted) != 1 {
		t.Fatalf("book upsert count = %d, want 1", len(bookRepo.upserted))
	}
	if bookRepo.upserted[0].Title != "吾輩は猫である" {
		t.Errorf("upserted title = %q", bookRepo.upserted[0].Title)
	}
	if len(recorder.recorded) != 1 || recorder.recorded[0] != model.ActivityRated {
		t.Errorf("recorded activities = %v, want [rated]", recorder.recorded)
	}
}

// TestService_SaveRating_InvalidSentiment は未知のセンチメントがストア呼び出し前に
// 弾かれることをテストする。
func TestService_SaveRating_InvalidSentiment(t *testing.T) {
	bookRepo := &mockBookRepo{}
	ratingRepo := &mockRatingRepo{}
	svc := newTestService(bookRepo, ratingRepo, &mockStatusRepo{}, &mockComparisonRepo{}, &mockRecorder{})

	_, err := svc.SaveRating(context.Background(), "user-1", SaveRatingInput{
		Book:      model.BookSummary{ID: "book-1", Title: "タイトル"},
		Sentiment: model.Sentiment("amazing"),
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidSentiment {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidSentiment)
	}
	if len(bookRepo.upserted) != 0 || len(ratingRepo.upserted) != 0 {
		t.Error("expected no store calls on validation failure")
	}
}

// TestService_SaveRating_InvalidBook は書籍のIDまたはタイトルが空の場合に
// 弾かれることをテストする。
func TestService_SaveRating_InvalidBook(t *testing.T) {
	svc := newTestService(&mockBookRepo{}, &mockRatingRepo{}, &mockStatusRepo{}, &mockComparisonRepo{}, &mockRecorder{})

	_, err := svc.SaveRating(context.Background(), "user-1", SaveRatingInput{
		Book:      model.BookSummary{ID: "book-1"},
		Sentiment: model.SentimentLiked,
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidBook {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidBook)
	}
}

// TestService_SaveRating_AppliesComparisonAdjustment は既存の比較履歴が
// 保存時のスコア導出に反映されることをテストする。
func TestService_SaveRating_AppliesComparisonAdjustment(t *testing.T) {
	comparisonRepo := &mockComparisonRepo{
		listFn: func(_ context.Context, userID, bookID string) ([]*model.Comparison, error) {
			if userID != "user-1" || bookID != "book-1" {
				t.Errorf("ListInvolving(%q, %q)", userID, bookID)
			}
			return []*model.Comparison{
				{LeftBookID: "book-1", RightBookID: "book-2", Winner: model.WinnerLeft},
			}, nil
		},
	}
	svc := newTestService(&mockBookRepo{}, &mockRatingRepo{}, &mockStatusRepo{}, comparisonRepo, &mockRecorder{})

	saved, err := svc.SaveRating(context.Background(), "user-1", SaveRatingInput{
		Book:      model.BookSummary{ID: "book-1", Title: "タイトル"},
		Sentiment: model.SentimentLoved,
	})
	if err != nil {
		t.Fatalf("SaveRating returned error: %v", err)
	}
	if saved.Score != 9.2 {
		t.Errorf("score = %v, want 9.2", saved.Score)
	}
}

// TestService_SaveRating_ComparisonFetchErrorFails は比較履歴の取得に失敗した場合、
// 代替スコアで保存せずエラーを返すことをテストする。
func TestService_SaveRating_ComparisonFetchErrorFails(t *testing.T) {
	ratingRepo := &mockRatingRepo{}
	comparisonRepo := &mockComparisonRepo{
		listFn: func(_ context.Context, _, _ string) ([]*model.Comparison, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := newTestService(&mockBookRepo{}, ratingRepo, &mockStatusRepo{}, comparisonRepo, &mockRecorder{})

	_, err := svc.SaveRating(context.Background(), "user-1", SaveRatingInput{
		Book:      model.BookSummary{ID: "book-1", Title: "タイトル"},
		Sentiment: model.SentimentOkay,
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(ratingRepo.upserted) != 0 {
		t.Error("expected no rating upsert when derivation fails")
	}
}

// TestService_SaveRating_WithReadingStatus は読書状態付き保存で状態がアップサートされ、
// 評価と状態変更の2件のアクティビティが記録されることをテストする。
func TestService_SaveRating_WithReadingStatus(t *testing.T) {
	statusRepo := &mockStatusRepo{}
	recorder := &mockRecorder{}
	svc := newTestService(&mockBookRepo{}, &mockRatingRepo{}, statusRepo, &mockComparisonRepo{}, recorder)

	status := model.ReadingStatusReading
	_, err := svc.SaveRating(context.Background(), "user-1", SaveRatingInput{
		Book:          model.BookSummary{ID: "book-1", Title: "タイトル"},
		Sentiment:     model.SentimentLiked,
		ReadingStatus: &status,
	})
	if err != nil {
		t.Fatalf("SaveRating returned error: %v", err)
	}

	if len(statusRepo.upserted) != 1 || statusRepo.upserted[0] != model.ReadingStatusReading {
		t.Errorf("status upserts = %v, want [reading]", statusRepo.upserted)
	}
	if len(recorder.recorded) != 2 {
		t.Fatalf("recorded activities = %v, want 2 entries", recorder.recorded)
	}
	if recorder.recorded[0] != model.ActivityRated || recorder.recorded[1] != model.ActivityStatusChanged {
		t.Errorf("recorded activities = %v", recorder.recorded)
	}
}

// TestService_SaveRating_NilStatusClears は読書状態なしの保存で既存の状態が
// 解除されることをテストする。
func TestService_SaveRating_NilStatusClears(t *testing.T) {
	statusRepo := &mockStatusRepo{}
	svc := newTestService(&mockBookRepo{}, &mockRatingRepo{}, statusRepo, &mockComparisonRepo{}, &mockRecorder{})

	_, err := svc.SaveRating(context.Background(), "user-1", SaveRatingInput{
		Book:      model.BookSummary{ID: "book-1", Title: "タイトル"},
		Sentiment: model.SentimentOkay,
	})
	if err != nil {
		t.Fatalf("SaveRating returned error: %v", err)
	}
	if statusRepo.deleted != 1 {
		t.Errorf("status delete count = %d, want 1", statusRepo.deleted)
	}
}

// TestService_SaveRating_ActivityFailureDoesNotFail はアクティビティ記録の失敗が
// 評価保存の成功を巻き戻さないことをテストする。
func TestService_SaveRating_ActivityFailureDoesNotFail(t *testing.T) {
	recorder := &mockRecorder{
		recordFn: func(_ context.Context, _, _ string, _ model.ActivityType, _ *string) error {
			return errors.New("activities table is on fire")
		},
	}
	svc := newTestService(&mockBookRepo{}, &mockRatingRepo{}, &mockStatusRepo{}, &mockComparisonRepo{}, recorder)

	saved, err := svc.SaveRating(context.Background(), "user-1", SaveRatingInput{
		Book:      model.BookSummary{ID: "book-1", Title: "タイトル"},
		Sentiment: model.SentimentLoved,
	})
	if err != nil {
		t.Fatalf("SaveRating returned error: %v", err)
	}
	if saved.Score != 9.0 {
		t.Errorf("score = %v, want 9.0", saved.Score)
	}
}

// --- GetBookRatingState テスト ---

// TestService_GetBookRatingState_AbsentIsNotError は評価も読書状態も未登録の書籍で
// エラーにならず、nilフィールドの状態が返ることをテストする。
func TestService_GetBookRatingState_AbsentIsNotError(t *testing.T) {
	svc := newTestService(&mockBookRepo{}, &mockRatingRepo{}, &mockStatusRepo{}, &mockComparisonRepo{}, &mockRecorder{})

	state, err := svc.GetBookRatingState(context.Background(), "user-1", "book-unknown")
	if err != nil {
		t.Fatalf("GetBookRatingState returned error: %v", err)
	}
	if state.Sentiment != nil || state.Score != nil || state.ReadingStatus != nil {
		t.Errorf("expected empty state, got %+v", state)
	}
}

// TestService_GetBookRatingState_ReturnsRatingAndStatus は保存済みの評価と読書状態が
// まとめて返ることをテストする。
func TestService_GetBookRatingState_ReturnsRatingAndStatus(t *testing.T) {
	ratingRepo := &mockRatingRepo{
		findFn: func(_ context.Context, _, _ string) (*model.Rating, error) {
			return &model.Rating{
				ID: "rating-1", UserID: "user-1", BookID: "book-1",
				Sentiment: model.SentimentLiked, Score: 7.4,
				Note: "良かった", IsNotePrivate: true,
			}, nil
		},
	}
	statusRepo := &mockStatusRepo{
		findFn: func(_ context.Context, _, _ string) (*model.ReadingStatus, error) {
			st := model.ReadingStatusRead
			return &st, nil
		},
	}
	svc := newTestService(&mockBookRepo{}, ratingRepo, statusRepo, &mockComparisonRepo{}, &mockRecorder{})

	state, err := svc.GetBookRatingState(context.Background(), "user-1", "book-1")
	if err != nil {
		t.Fatalf("GetBookRatingState returned error: %v", err)
	}
	if state.Sentiment == nil || *state.Sentiment != model.SentimentLiked {
		t.Errorf("sentiment = %v", state.Sentiment)
	}
	if state.Score == nil || *state.Score != 7.4 {
		t.Errorf("score = %v", state.Score)
	}
	if !state.IsNotePrivate {
		t.Error("expected IsNotePrivate to be true")
	}
	if state.ReadingStatus == nil || *state.ReadingStatus != model.ReadingStatusRead {
		t.Errorf("reading status = %v", state.ReadingStatus)
	}
}

// --- RescoreBook テスト ---

// TestService_RescoreBook_NoRatingIsNoop は評価のない書籍の再計算が何もせず
// 成功することをテストする。
func TestService_RescoreBook_NoRatingIsNoop(t *testing.T) {
	ratingRepo := &mockRatingRepo{}
	svc := newTestService(&mockBookRepo{}, ratingRepo, &mockStatusRepo{}, &mockComparisonRepo{}, &mockRecorder{})

	if err := svc.RescoreBook(context.Background(), "user-1", "book-1"); err != nil {
		t.Fatalf("RescoreBook returned error: %v", err)
	}
	if len(ratingRepo.scoreUpdates) != 0 {
		t.Errorf("score updates = %v, want none", ratingRepo.scoreUpdates)
	}
}

// TestService_RescoreBook_UpdatesScore は比較履歴の変化が保存済みスコアに
// 反映されることをテストする。
func TestService_RescoreBook_UpdatesScore(t *testing.T) {
	ratingRepo := &mockRatingRepo{
		findFn: func(_ context.Context, _, _ string) (*model.Rating, error) {
			return &model.Rating{UserID: "user-1", BookID: "book-1", Sentiment: model.SentimentOkay, Score: 5.0}, nil
		},
	}
	comparisonRepo := &mockComparisonRepo{
		listFn: func(_ context.Context, _, _ string) ([]*model.Comparison, error) {
			return []*model.Comparison{
				{LeftBookID: "book-1", RightBookID: "book-2", Winner: model.WinnerLeft},
				{LeftBookID: "book-1", RightBookID: "book-3", Winner: model.WinnerLeft},
			}, nil
		},
	}
	svc := newTestService(&mockBookRepo{}, ratingRepo, &mockStatusRepo{}, comparisonRepo, &mockRecorder{})

	if err := svc.RescoreBook(context.Background(), "user-1", "book-1"); err != nil {
		t.Fatalf("RescoreBook returned error: %v", err)
	}
	if len(ratingRepo.scoreUpdates) != 1 || ratingRepo.scoreUpdates[0] != 5.4 {
		t.Errorf("score updates = %v, want [5.4]", ratingRepo.scoreUpdates)
	}
}

// TestService_RescoreBook_SkipsWhenUnchanged は導出結果が保存済みスコアと同じ場合に
// 更新を発行しないことをテストする。
func TestService_RescoreBook_SkipsWhenUnchanged(t *testing.T) {
	ratingRepo := &mockRatingRepo{
		findFn: func(_ context.Context, _, _ string) (*model.Rating, error) {
			return &model.Rating{UserID: "user-1", BookID: "book-1", Sentiment: model.SentimentLoved, Score: 9.0}, nil
		},
	}
	svc := newTestService(&mockBookRepo{}, ratingRepo, &mockStatusRepo{}, &mockComparisonRepo{}, &mockRecorder{})

	if err := svc.RescoreBook(context.Background(), "user-1", "book-1"); err != nil {
		t.Fatalf("RescoreBook returned error: %v", err)
	}
	if len(ratingRepo.scoreUpdates) != 0 {
		t.Errorf("score updates = %v, want none", ratingRepo.scoreUpdates)
	}
}

// --- SetReadingStatus テスト ---

// TestService_SetReadingStatus_UpsertsAndRecords は読書状態の単独更新で状態が保存され、
// 変更アクティビティが記録されることをテストする。
func TestService_SetReadingStatus_UpsertsAndRecords(t *testing.T) {
	statusRepo := &mockStatusRepo{}
	recorder := &mockRecorder{}
	svc := newTestService(&mockBookRepo{}, &mockRatingRepo{}, statusRepo, &mockComparisonRepo{}, recorder)

	status := model.ReadingStatusWantToRead
	if err := svc.SetReadingStatus(context.Background(), "user-1", "book-1", &status); err != nil {
		t.Fatalf("SetReadingStatus returned error: %v", err)
	}
	if len(statusRepo.upserted) != 1 || statusRepo.upserted[0] != model.ReadingStatusWantToRead {
		t.Errorf("status upserts = %v", statusRepo.upserted)
	}
	if len(recorder.recorded) != 1 || recorder.recorded[0] != model.ActivityStatusChanged {
		t.Errorf("recorded activities = %v", recorder.recorded)
	}
}

// TestService_SetReadingStatus_InvalidStatus は未知の読書状態が弾かれることをテストする。
func TestService_SetReadingStatus_InvalidStatus(t *testing.T) {
	svc := newTestService(&mockBookRepo{}, &mockRatingRepo{}, &mockStatusRepo{}, &mockComparisonRepo{}, &mockRecorder{})

	bogus := model.ReadingStatus("finished")
	err := svc.SetReadingStatus(context.Background(), "user-1", "book-1", &bogus)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidStatus {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidStatus)
	}
}

// TestService_SetReadingStatus_NilClears はnil指定で状態が解除され、
// アクティビティが記録されないことをテストする。
func TestService_SetReadingStatus_NilClears(t *testing.T) {
	statusRepo := &mockStatusRepo{}
	recorder := &mockRecorder{}
	svc := newTestService(&mockBookRepo{}, &mockRatingRepo{}, statusRepo, &mockComparisonRepo{}, recorder)

	if err := svc.SetReadingStatus(context.Background(), "user-1", "book-1", nil); err != nil {
		t.Fatalf("SetReadingStatus returned error: %v", err)
	}
	if statusRepo.deleted != 1 {
		t.Errorf("status delete count = %d, want 1", statusRepo.deleted)
	}
	if len(recorder.recorded) != 0 {
		t.Errorf("recorded activities = %v, want none", recorder.recorded)
	}
}
