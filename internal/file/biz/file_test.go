package biz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinliu948/storeit-backend/internal/file/filetype"
	apperrors "github.com/kevinliu948/storeit-backend/internal/pkg/errors"
	"github.com/kevinliu948/storeit-backend/internal/pkg/logger"
	userbiz "github.com/kevinliu948/storeit-backend/internal/user/biz"
)

// eventLog records cross-fake side effects so tests can assert ordering.
type eventLog struct {
	events []string
}

func (l *eventLog) add(e string) {
	l.events = append(l.events, e)
}

type fakeFileRepo struct {
	log   *eventLog
	files map[string]*File

	lastQuery  *ListQuery
	listResult []*File

	createErr error
	deleteErr error
}

func newFakeFileRepo(log *eventLog) *fakeFileRepo {
	return &fakeFileRepo{log: log, files: make(map[string]*File)}
}

func (r *fakeFileRepo) Create(_ context.Context, file *File) error {
	if r.createErr != nil {
		return r.createErr
	}
	now := time.Now()
	file.CreatedAt = now
	file.UpdatedAt = now
	cp := *file
	r.files[file.ID] = &cp
	r.log.add("repo.create:" + file.ID)
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, id string) (*File, error) {
	f, ok := r.files[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFileRepo) List(_ context.Context, q *ListQuery) ([]*File, error) {
	r.lastQuery = q
	return r.listResult, nil
}

func (r *fakeFileRepo) ListOwnedBy(_ context.Context, ownerID string) ([]*File, error) {
	var out []*File
	for _, f := range r.files {
		if f.OwnerID == ownerID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) UpdateURL(_ context.Context, id, url string) error {
	f, ok := r.files[id]
	if !ok {
		return errors.New("record not found")
	}
	f.URL = url
	f.UpdatedAt = time.Now()
	r.log.add("repo.update_url:" + id)
	return nil
}

func (r *fakeFileRepo) UpdateName(_ context.Context, id, name string) error {
	f, ok := r.files[id]
	if !ok {
		return errors.New("record not found")
	}
	f.Name = name
	f.UpdatedAt = time.Now()
	return nil
}

func (r *fakeFileRepo) UpdateUsers(_ context.Context, id string, users []string) error {
	f, ok := r.files[id]
	if !ok {
		return errors.New("record not found")
	}
	f.Users = users
	f.UpdatedAt = time.Now()
	return nil
}

func (r *fakeFileRepo) Delete(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.files[id]; !ok {
		return errors.New("record not found")
	}
	delete(r.files, id)
	r.log.add("repo.delete:" + id)
	return nil
}

type fakeChunkRepo struct {
	states map[string]map[int]*ChunkState
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{states: make(map[string]map[int]*ChunkState)}
}

func (r *fakeChunkRepo) Confirm(_ context.Context, chunk *ChunkState) error {
	m, ok := r.states[chunk.BucketFileID]
	if !ok {
		m = make(map[int]*ChunkState)
		r.states[chunk.BucketFileID] = m
	}
	cp := *chunk
	m[chunk.Index] = &cp
	return nil
}

func (r *fakeChunkRepo) ListConfirmed(_ context.Context, bucketFileID string) ([]*ChunkState, error) {
	var out []*ChunkState
	for _, s := range r.states[bucketFileID] {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (r *fakeChunkRepo) DeleteByBucketFileID(_ context.Context, bucketFileID string) error {
	delete(r.states, bucketFileID)
	return nil
}

type fakeChunkStore struct {
	log      *eventLog
	chunks   map[string]map[int][]byte
	objects  map[string][]byte
	putCalls []int

	putErrAt  int // chunk index that fails, -1 for none
	removeErr error
}

func newFakeChunkStore(log *eventLog) *fakeChunkStore {
	return &fakeChunkStore{
		log:      log,
		chunks:   make(map[string]map[int][]byte),
		objects:  make(map[string][]byte),
		putErrAt: -1,
	}
}

func (s *fakeChunkStore) PutChunk(_ context.Context, bucketFileID string, index int, r io.Reader, size int64) (string, error) {
	s.putCalls = append(s.putCalls, index)
	if index == s.putErrAt {
		return "", errors.New("connection reset")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("short chunk: got %d bytes, declared %d", len(data), size)
	}
	m, ok := s.chunks[bucketFileID]
	if !ok {
		m = make(map[int][]byte)
		s.chunks[bucketFileID] = m
	}
	m[index] = data
	return fmt.Sprintf("etag-%d", index), nil
}

func (s *fakeChunkStore) Compose(_ context.Context, bucketFileID string, totalChunks int) error {
	var buf bytes.Buffer
	for i := 0; i < totalChunks; i++ {
		part, ok := s.chunks[bucketFileID][i]
		if !ok {
			return fmt.Errorf("missing chunk %d", i)
		}
		buf.Write(part)
	}
	s.objects[bucketFileID] = buf.Bytes()
	delete(s.chunks, bucketFileID)
	return nil
}

func (s *fakeChunkStore) Remove(_ context.Context, bucketFileID string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.objects, bucketFileID)
	delete(s.chunks, bucketFileID)
	s.log.add("store.remove:" + bucketFileID)
	return nil
}

func (s *fakeChunkStore) Open(_ context.Context, bucketFileID string) (io.ReadCloser, error) {
	data, ok := s.objects[bucketFileID]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeChunkStore) ObjectURL(bucketFileID string) string {
	return "http://minio.local/storeit/files/" + bucketFileID
}

type fakeRevalidator struct {
	paths []string
}

func (r *fakeRevalidator) Revalidate(_ context.Context, path string) error {
	r.paths = append(r.paths, path)
	return nil
}

type notifyCall struct {
	fileName  string
	ownerName string
	emails    []string
}

type fakeNotifier struct {
	calls []notifyCall
	err   error
}

func (n *fakeNotifier) NotifyShared(_ context.Context, fileName, ownerName string, emails []string) error {
	n.calls = append(n.calls, notifyCall{fileName: fileName, ownerName: ownerName, emails: emails})
	return n.err
}

type testEnv struct {
	uc       *FileUseCase
	repo     *fakeFileRepo
	chunks   *fakeChunkRepo
	store    *fakeChunkStore
	cache    *fakeRevalidator
	notifier *fakeNotifier
	log      *eventLog
}

const testCapacity int64 = 2 << 30

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "console"})
	require.NoError(t, err)

	events := &eventLog{}
	env := &testEnv{
		repo:     newFakeFileRepo(events),
		chunks:   newFakeChunkRepo(),
		store:    newFakeChunkStore(events),
		cache:    &fakeRevalidator{},
		notifier: &fakeNotifier{},
		log:      events,
	}
	env.uc = NewFileUseCase(env.repo, env.chunks, env.store, env.cache, env.notifier, testCapacity, log)
	return env
}

func testUser() *userbiz.User {
	return &userbiz.User{
		ID:        "user-1",
		AccountID: "account-1",
		FullName:  "Ada Lovelace",
		Email:     "ada@example.com",
	}
}

func testUserNamed(id, email string) *userbiz.User {
	return &userbiz.User{ID: id, AccountID: "account-" + id, FullName: "Test User", Email: email}
}

func seedFile(env *testEnv, f *File) *File {
	if f.Users == nil {
		f.Users = []string{}
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = f.CreatedAt
	}
	cp := *f
	env.repo.files[f.ID] = &cp
	if f.URL != "" {
		env.store.objects[f.BucketFileID] = []byte("stored contents of " + f.Name)
	}
	return f
}

func TestComposeListQuery(t *testing.T) {
	user := testUser()

	t.Run("defaults", func(t *testing.T) {
		q, err := ComposeListQuery(user, &ListFilesRequest{})
		require.NoError(t, err)
		assert.Equal(t, user.ID, q.OwnerID)
		assert.Equal(t, user.Email, q.SharedEmail)
		assert.Equal(t, "created_at", q.SortColumn)
		assert.True(t, q.SortDesc)
		assert.Zero(t, q.Limit)
		assert.Empty(t, q.Types)
	})

	t.Run("explicit sort and filters", func(t *testing.T) {
		q, err := ComposeListQuery(user, &ListFilesRequest{
			Types:  []string{"document", "image"},
			Search: "report",
			Sort:   "name-asc",
			Limit:  25,
		})
		require.NoError(t, err)
		assert.Equal(t, []filetype.Category{filetype.Document, filetype.Image}, q.Types)
		assert.Equal(t, "report", q.Search)
		assert.Equal(t, "name", q.SortColumn)
		assert.False(t, q.SortDesc)
		assert.Equal(t, 25, q.Limit)
	})

	t.Run("unknown direction falls back to descending", func(t *testing.T) {
		q, err := ComposeListQuery(user, &ListFilesRequest{Sort: "size-sideways"})
		require.NoError(t, err)
		assert.Equal(t, "size", q.SortColumn)
		assert.True(t, q.SortDesc)
	})

	t.Run("rejects unknown sort column", func(t *testing.T) {
		_, err := ComposeListQuery(user, &ListFilesRequest{Sort: "owner_id-asc"})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrFileInvalidParams))
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := ComposeListQuery(user, &ListFilesRequest{Types: []string{"spreadsheet"}})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrFileInvalidParams))
	})

	t.Run("rejects negative limit", func(t *testing.T) {
		_, err := ComposeListQuery(user, &ListFilesRequest{Limit: -1})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrFileInvalidParams))
	})
}

func TestListFilesAlwaysScopesToCaller(t *testing.T) {
	env := newTestEnv(t)
	user := testUser()

	_, err := env.uc.ListFiles(context.Background(), user, &ListFilesRequest{Search: "notes"})
	require.NoError(t, err)

	require.NotNil(t, env.repo.lastQuery)
	assert.Equal(t, user.ID, env.repo.lastQuery.OwnerID)
	assert.Equal(t, user.Email, env.repo.lastQuery.SharedEmail)
}

func TestVisibleTo(t *testing.T) {
	owner := testUser()
	stranger := &userbiz.User{ID: "user-2", Email: "grace@example.com"}
	shared := &userbiz.User{ID: "user-3", Email: "shared@example.com"}

	f := &File{OwnerID: owner.ID, Users: []string{"shared@example.com"}}

	assert.True(t, f.VisibleTo(owner))
	assert.True(t, f.VisibleTo(shared))
	assert.False(t, f.VisibleTo(stranger))
}

func TestRenameFile(t *testing.T) {
	env := newTestEnv(t)
	user := testUser()
	seedFile(env, &File{
		ID: "f1", Name: "notes.txt", Type: filetype.Document, Extension: "txt",
		URL: "http://minio.local/storeit/files/b1", Size: 10,
		OwnerID: user.ID, AccountID: user.AccountID, BucketFileID: "b1",
	})

	file, err := env.uc.RenameFile(context.Background(), user, "f1", "meeting-notes", "txt", "/documents")
	require.NoError(t, err)
	assert.Equal(t, "meeting-notes.txt", file.Name)
	assert.Equal(t, "meeting-notes.txt", env.repo.files["f1"].Name)
	assert.Equal(t, []string{"/documents"}, env.cache.paths)
}

func TestRenameFileRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := testUser()
	other := &userbiz.User{ID: "user-2", Email: "grace@example.com"}
	seedFile(env, &File{
		ID: "f1", Name: "notes.txt", OwnerID: owner.ID, BucketFileID: "b1",
		URL: "u", Users: []string{other.Email},
	})

	// Visibility through sharing does not grant mutation rights.
	_, err := env.uc.RenameFile(context.Background(), other, "f1", "stolen", "txt", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileUnauthorized))
	assert.Equal(t, "notes.txt", env.repo.files["f1"].Name)
}

func TestUpdateFileUsersReplacesList(t *testing.T) {
	env := newTestEnv(t)
	user := testUser()
	seedFile(env, &File{
		ID: "f1", Name: "photo.jpg", OwnerID: user.ID, BucketFileID: "b1", URL: "u",
		Users: []string{"old@example.com", "kept@example.com"},
	})

	file, err := env.uc.UpdateFileUsers(context.Background(), user, "f1",
		[]string{"kept@example.com", "new@example.com"}, "/share")
	require.NoError(t, err)

	// Wholesale replacement: old@example.com loses access.
	assert.Equal(t, []string{"kept@example.com", "new@example.com"}, file.Users)
	assert.Equal(t, []string{"kept@example.com", "new@example.com"}, env.repo.files["f1"].Users)

	// Only the newly added address is notified.
	require.Len(t, env.notifier.calls, 1)
	assert.Equal(t, "photo.jpg", env.notifier.calls[0].fileName)
	assert.Equal(t, user.FullName, env.notifier.calls[0].ownerName)
	assert.Equal(t, []string{"new@example.com"}, env.notifier.calls[0].emails)
}

func TestUpdateFileUsersNilClearsList(t *testing.T) {
	env := newTestEnv(t)
	user := testUser()
	seedFile(env, &File{
		ID: "f1", Name: "photo.jpg", OwnerID: user.ID, BucketFileID: "b1", URL: "u",
		Users: []string{"old@example.com"},
	})

	file, err := env.uc.UpdateFileUsers(context.Background(), user, "f1", nil, "")
	require.NoError(t, err)
	assert.NotNil(t, file.Users)
	assert.Empty(t, file.Users)
	assert.Empty(t, env.notifier.calls)
}

func TestUpdateFileUsersNotifierFailureDoesNotFailShare(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("smtp down")
	user := testUser()
	seedFile(env, &File{ID: "f1", Name: "a.txt", OwnerID: user.ID, BucketFileID: "b1", URL: "u"})

	file, err := env.uc.UpdateFileUsers(context.Background(), user, "f1", []string{"new@example.com"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"new@example.com"}, file.Users)
}

func TestDeleteFileRemovesRecordThenObject(t *testing.T) {
	env := newTestEnv(t)
	user := testUser()
	seedFile(env, &File{ID: "f1", Name: "a.txt", OwnerID: user.ID, BucketFileID: "b1", URL: "u"})

	err := env.uc.DeleteFile(context.Background(), user, "f1", "/documents")
	require.NoError(t, err)

	assert.NotContains(t, env.repo.files, "f1")
	assert.NotContains(t, env.store.objects, "b1")
	assert.Equal(t, []string{"repo.delete:f1", "store.remove:b1"}, env.log.events)
	assert.Equal(t, []string{"/documents"}, env.cache.paths)
}

func TestDeleteFileStorageFailureLeavesRecordDeleted(t *testing.T) {
	env := newTestEnv(t)
	env.store.removeErr = errors.New("storage unavailable")
	user := testUser()
	seedFile(env, &File{ID: "f1", Name: "a.txt", OwnerID: user.ID, BucketFileID: "b1", URL: "u"})

	err := env.uc.DeleteFile(context.Background(), user, "f1", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileStorageFailed))

	// The record deletion committed first and stays committed.
	assert.NotContains(t, env.repo.files, "f1")
	assert.Contains(t, env.store.objects, "b1")
}

func TestDeleteFileRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := testUser()
	other := &userbiz.User{ID: "user-2", Email: "grace@example.com"}
	seedFile(env, &File{ID: "f1", Name: "a.txt", OwnerID: owner.ID, BucketFileID: "b1", URL: "u"})

	err := env.uc.DeleteFile(context.Background(), other, "f1", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileUnauthorized))
	assert.Contains(t, env.repo.files, "f1")
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t)
	user := testUser()
	seedFile(env, &File{
		ID: "f1", Name: "a.txt", OwnerID: user.ID, BucketFileID: "b1",
		URL: "http://minio.local/storeit/files/b1", Size: 5,
	})

	rc, file, err := env.uc.Download(context.Background(), user, "f1")
	require.NoError(t, err)
	defer rc.Close()

	assert.Equal(t, "a.txt", file.Name)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestDownloadDeniedWhenNotVisible(t *testing.T) {
	env := newTestEnv(t)
	owner := testUser()
	other := &userbiz.User{ID: "user-2", Email: "grace@example.com"}
	seedFile(env, &File{ID: "f1", Name: "a.txt", OwnerID: owner.ID, BucketFileID: "b1", URL: "u"})

	_, _, err := env.uc.Download(context.Background(), other, "f1")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileUnauthorized))
}

func TestDownloadRejectsIncompleteUpload(t *testing.T) {
	env := newTestEnv(t)
	user := testUser()
	seedFile(env, &File{ID: "f1", Name: "a.txt", OwnerID: user.ID, BucketFileID: "b1", URL: ""})

	_, _, err := env.uc.Download(context.Background(), user, "f1")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileIncomplete))
}
