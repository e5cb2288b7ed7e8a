package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
)

// fakeStore keeps posts, media, accounts and records in memory and applies
// the same pending gate as the SQL repository.
type fakeStore struct {
	mu       sync.Mutex
	posts    map[int64]*models.Post
	media    map[int64][]*models.MediaAsset
	accounts map[int64]*models.SocialAccount
	records  []*models.ExecutionRecord
	updates  int

	// Queued faults, consumed one per call.
	getErrs    []error
	updateErrs []error
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:    map[int64]*models.Post{},
		media:    map[int64][]*models.MediaAsset{},
		accounts: map[int64]*models.SocialAccount{},
	}
}

func (s *fakeStore) post(id int64) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.posts[id]
}

func (s *fakeStore) setStatus(id int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[id].Status = status
}

func (s *fakeStore) recordStatuses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Status)
	}
	return out
}

type fakePosts struct{ *fakeStore }

func (f fakePosts) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := popErr(&f.getErrs); err != nil {
		return nil, err
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f fakePosts) UpdatePostStatus(ctx context.Context, postID int64, u repository.PostStatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := popErr(&f.updateErrs); err != nil {
		return err
	}
	p, ok := f.posts[postID]
	if !ok || p.Status != models.PostStatusPending {
		return repository.ErrPostNotPending
	}
	f.updates++
	p.Status = u.Status
	p.RetryCount = u.RetryCount
	p.ErrorMessage = u.ErrorMessage
	if u.RemotePostID != "" {
		p.RemotePostID = u.RemotePostID
	}
	if u.RemotePostURL != "" {
		p.RemotePostURL = u.RemotePostURL
	}
	if u.PublishedAt != nil {
		p.PublishedAt = u.PublishedAt
	}
	return nil
}

func (f fakePosts) UpdateScheduledTime(ctx context.Context, postID int64, at time.Time) error {
	return errors.New("not used")
}

func (f fakePosts) Cancel(ctx context.Context, postID int64) error {
	return errors.New("not used")
}

func (f fakePosts) ResetFailed(ctx context.Context, postID int64) error {
	return errors.New("not used")
}

type fakeMedia struct{ *fakeStore }

func (f fakeMedia) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.media[postID], nil
}

type fakeRecords struct{ *fakeStore }

func (f fakeRecords) Create(ctx context.Context, rec *models.ExecutionRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	cp.ID = int64(len(f.records) + 1)
	f.records = append(f.records, &cp)
	return cp.ID, nil
}

func (f fakeRecords) ListByPostID(ctx context.Context, postID int64) ([]*models.ExecutionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ExecutionRecord
	for _, r := range f.records {
		if r.PostID == postID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAccounts struct{ *fakeStore }

func (f fakeAccounts) Create(ctx context.Context, sa *models.SocialAccount) (int64, error) {
	return 0, errors.New("not used")
}

func (f fakeAccounts) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

func (f fakeAccounts) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f fakeAccounts) UpdateCredential(ctx context.Context, id int64, access, refresh string, expiresAt time.Time) error {
	return nil
}

func (f fakeAccounts) Remove(ctx context.Context, id int64) error {
	return nil
}

// fakeCredentials hands out the stored token as plaintext.
type fakeCredentials struct {
	err error
}

func (f fakeCredentials) EnsureFresh(ctx context.Context, acc *models.SocialAccount, adapter service.PlatformAdapter) (service.Credential, error) {
	if f.err != nil {
		return service.Credential{}, f.err
	}
	return service.Credential{AccessToken: acc.AccessToken}, nil
}

func (f fakeCredentials) Refresh(ctx context.Context, acc *models.SocialAccount, adapter service.PlatformAdapter) (service.Credential, error) {
	return f.EnsureFresh(ctx, acc, adapter)
}

func (f fakeCredentials) Open(acc *models.SocialAccount) (service.Credential, error) {
	return service.Credential{AccessToken: acc.AccessToken}, nil
}

func (f fakeCredentials) Store(ctx context.Context, userID int64, platform string, connected *service.ConnectedAccount) (int64, error) {
	return 0, errors.New("not used")
}

type publishStep struct {
	result *service.PublishResult
	err    error
	before func()
}

// scriptedAdapter answers publish calls from a fixed script.
type scriptedAdapter struct {
	mu    sync.Mutex
	steps []publishStep
	calls int
	reqs  []service.PublishRequest
}

func (a *scriptedAdapter) next(req service.PublishRequest) (*service.PublishResult, error) {
	a.mu.Lock()
	step := a.steps[a.calls]
	a.calls++
	a.reqs = append(a.reqs, req)
	a.mu.Unlock()

	if step.before != nil {
		step.before()
	}
	return step.result, step.err
}

func (a *scriptedAdapter) Platform() string { return service.PlatformInstagram }

func (a *scriptedAdapter) ConnectAccount(ctx context.Context, code string) (*service.ConnectedAccount, error) {
	return nil, errors.New("not used")
}

func (a *scriptedAdapter) ValidateAccount(ctx context.Context, cred service.Credential) (bool, error) {
	return true, nil
}

func (a *scriptedAdapter) RefreshToken(ctx context.Context, refreshToken string) (*service.Credential, error) {
	return nil, errors.New("not used")
}

func (a *scriptedAdapter) Disconnect(ctx context.Context, cred service.Credential) error {
	return nil
}

func (a *scriptedAdapter) ValidateMedia(assets []*models.MediaAsset, postType string) service.MediaValidation {
	return service.ValidateInstagramMedia(assets, postType)
}

func (a *scriptedAdapter) PublishPost(ctx context.Context, req service.PublishRequest) (*service.PublishResult, error) {
	return a.next(req)
}

func (a *scriptedAdapter) PublishReel(ctx context.Context, req service.PublishRequest) (*service.PublishResult, error) {
	return a.next(req)
}

func (a *scriptedAdapter) GetPostStatus(ctx context.Context, cred service.Credential, id string) (*service.RemotePostStatus, error) {
	return nil, errors.New("not used")
}

func (a *scriptedAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
