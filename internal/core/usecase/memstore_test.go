package usecase

import (
	"context"
	"errors"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// memState - снимок хранилища. Единица работы и точка сохранения работают с копией,
// Commit переносит копию в родителя.
type memState struct {
	communities map[uuid.UUID]domain.Community
	aliases     map[uuid.UUID]domain.CommunityAlias
	properties  map[uuid.UUID]domain.PropertyRecord
	images      map[uuid.UUID][]string
	snapshots   []domain.PropertyHistorySnapshot
}

func newMemState() *memState {
	return &memState{
		communities: map[uuid.UUID]domain.Community{},
		aliases:     map[uuid.UUID]domain.CommunityAlias{},
		properties:  map[uuid.UUID]domain.PropertyRecord{},
		images:      map[uuid.UUID][]string{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.communities {
		c.communities[k] = v
	}
	for k, v := range s.aliases {
		c.aliases[k] = v
	}
	for k, v := range s.properties {
		c.properties[k] = v
	}
	for k, v := range s.images {
		c.images[k] = append([]string(nil), v...)
	}
	c.snapshots = append([]domain.PropertyHistorySnapshot(nil), s.snapshots...)
	return c
}

type memStore struct {
	mu      sync.Mutex
	state   *memState
	begins  int
	writes  int
	commits int

	failOps map[string]error
	// commitErr вызывается на каждую фиксацию верхнего уровня, n начинается с 1
	commitErr func(n int) error
	// insertErr вызывается перед вставкой объекта
	insertErr func(rec *domain.PropertyRecord) error
	// raceOnCreate: сколько раз InsertIfAbsent проиграет гонку конкуренту
	raceOnCreate int
	// beforeBegin вызывается до снятия копии состояния, имитирует чужую фиксацию
	beforeBegin func(st *memState)
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), failOps: map[string]error{}}
}

func (s *memStore) check(op string) error {
	if err, ok := s.failOps[op]; ok {
		return err
	}
	return nil
}

func (s *memStore) Begin(ctx context.Context) (port.UnitOfWork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("begin"); err != nil {
		return nil, err
	}
	if s.beforeBegin != nil {
		s.beforeBegin(s.state)
	}
	s.begins++
	return &memUnit{store: s, state: s.state.clone()}, nil
}

// Communities - чтение вне единицы работы (аналог пула)
func (s *memStore) Communities() port.CommunityRepositoryPort {
	return &memCommunities{store: s, state: func() *memState { return s.state }}
}

func (s *memStore) addCommunity(name string, active bool) domain.Community {
	c := domain.Community{ID: uuid.New(), Name: name, IsActive: active}
	s.state.communities[c.ID] = c
	return c
}

func (s *memStore) addAlias(communityID uuid.UUID, name, source string) domain.CommunityAlias {
	a := domain.CommunityAlias{ID: uuid.New(), AliasName: name, CommunityID: communityID, Source: source}
	s.state.aliases[a.ID] = a
	return a
}

func (s *memStore) addProperty(communityID uuid.UUID, sourceID string) domain.PropertyRecord {
	p := domain.PropertyRecord{
		ID:               uuid.New(),
		DataSource:       "seed",
		SourcePropertyID: sourceID,
		CommunityID:      communityID,
		Status:           domain.StatusForSale,
		IsActive:         true,
	}
	s.state.properties[p.ID] = p
	return p
}

func (s *memStore) communityByName(name string) (domain.Community, bool) {
	for _, c := range s.state.communities {
		if c.Name == name {
			return c, true
		}
	}
	return domain.Community{}, false
}

func (s *memStore) propertyByKey(source, sourceID string) (domain.PropertyRecord, bool) {
	for _, p := range s.state.properties {
		if p.DataSource == source && p.SourcePropertyID == sourceID {
			return p, true
		}
	}
	return domain.PropertyRecord{}, false
}

func (s *memStore) aliasesOf(communityID uuid.UUID) []domain.CommunityAlias {
	var out []domain.CommunityAlias
	for _, a := range s.state.aliases {
		if a.CommunityID == communityID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AliasName < out[j].AliasName })
	return out
}

type memUnit struct {
	store  *memStore
	parent *memUnit
	state  *memState
	closed bool
}

func (u *memUnit) Communities() port.CommunityRepositoryPort {
	return &memCommunities{store: u.store, state: func() *memState { return u.state }}
}

func (u *memUnit) Properties() port.PropertyRepositoryPort {
	return &memProperties{store: u.store, state: func() *memState { return u.state }}
}

func (u *memUnit) Savepoint(ctx context.Context) (port.UnitOfWork, error) {
	if err := u.store.check("savepoint"); err != nil {
		return nil, err
	}
	return &memUnit{store: u.store, parent: u, state: u.state.clone()}, nil
}

func (u *memUnit) Commit(ctx context.Context) error {
	if u.closed {
		return errors.New("unit already closed")
	}
	u.closed = true
	if u.parent != nil {
		u.parent.state = u.state
		return nil
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.commits++
	if u.store.commitErr != nil {
		if err := u.store.commitErr(u.store.commits); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.store.state = u.state
	return nil
}

func (u *memUnit) Rollback(ctx context.Context) error {
	u.closed = true
	return nil
}

type memCommunities struct {
	store *memStore
	state func() *memState
}

func (r *memCommunities) FindActiveByName(ctx context.Context, name string) (*domain.Community, error) {
	for _, c := range r.state().communities {
		if c.IsActive && c.Name == name {
			return &c, nil
		}
	}
	return nil, domain.ErrCommunityNotFound
}

func (r *memCommunities) FindActiveByAlias(ctx context.Context, alias string) (*domain.Community, error) {
	st := r.state()
	for _, a := range st.aliases {
		if a.AliasName != alias {
			continue
		}
		if c, ok := st.communities[a.CommunityID]; ok && c.IsActive {
			return &c, nil
		}
	}
	return nil, domain.ErrCommunityNotFound
}

func (r *memCommunities) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Community, error) {
	var out []domain.Community
	for _, id := range ids {
		if c, ok := r.state().communities[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCommunities) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Community, error) {
	return r.FindByIDs(ctx, ids)
}

func (r *memCommunities) InsertIfAbsent(ctx context.Context, community *domain.Community) (bool, error) {
	if err := r.store.check("insert_community"); err != nil {
		return false, err
	}
	st := r.state()
	if r.store.raceOnCreate > 0 {
		r.store.raceOnCreate--
		// конкурент успел вставить то же имя; видим его только если гонки больше не будет
		if r.store.raceOnCreate == 0 {
			winner := *community
			winner.ID = uuid.New()
			st.communities[winner.ID] = winner
		}
		return false, nil
	}
	for _, c := range st.communities {
		if c.IsActive && c.Name == community.Name {
			return false, nil
		}
	}
	r.store.writes++
	st.communities[community.ID] = *community
	return true, nil
}

func (r *memCommunities) BackfillGeo(ctx context.Context, id uuid.UUID, geo domain.GeoAttrs) error {
	st := r.state()
	c := st.communities[id]
	if c.City == nil {
		c.City = geo.City
	}
	if c.District == nil {
		c.District = geo.District
	}
	if c.BusinessCircle == nil {
		c.BusinessCircle = geo.BusinessCircle
	}
	r.store.writes++
	st.communities[id] = c
	return nil
}

func (r *memCommunities) AddAlias(ctx context.Context, alias domain.CommunityAlias) (bool, error) {
	if err := r.store.check("add_alias"); err != nil {
		return false, err
	}
	st := r.state()
	for _, a := range st.aliases {
		if a.AliasName == alias.AliasName && a.Source == alias.Source {
			return false, nil
		}
	}
	r.store.writes++
	st.aliases[alias.ID] = alias
	return true, nil
}

func (r *memCommunities) ListAliases(ctx context.Context, communityID uuid.UUID) ([]domain.CommunityAlias, error) {
	var out []domain.CommunityAlias
	for _, a := range r.state().aliases {
		if a.CommunityID == communityID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AliasName < out[j].AliasName })
	return out, nil
}

func (r *memCommunities) MoveAlias(ctx context.Context, aliasID, toCommunityID uuid.UUID) error {
	st := r.state()
	a := st.aliases[aliasID]
	a.CommunityID = toCommunityID
	r.store.writes++
	st.aliases[aliasID] = a
	return nil
}

func (r *memCommunities) DeleteAlias(ctx context.Context, aliasID uuid.UUID) error {
	r.store.writes++
	delete(r.state().aliases, aliasID)
	return nil
}

func (r *memCommunities) Deactivate(ctx context.Context, ids []uuid.UUID) (int64, error) {
	st := r.state()
	var n int64
	for _, id := range ids {
		if c, ok := st.communities[id]; ok && c.IsActive {
			c.IsActive = false
			st.communities[id] = c
			n++
		}
	}
	r.store.writes++
	return n, nil
}

func (r *memCommunities) RefreshPropertyCount(ctx context.Context, id uuid.UUID) (int, error) {
	st := r.state()
	count := 0
	for _, p := range st.properties {
		if p.IsActive && p.CommunityID == id {
			count++
		}
	}
	c := st.communities[id]
	c.PropertyCount = count
	st.communities[id] = c
	r.store.writes++
	return count, nil
}

type memProperties struct {
	store *memStore
	state func() *memState
}

func (r *memProperties) FindByNaturalKey(ctx context.Context, dataSource, sourcePropertyID string) (*domain.PropertyRecord, error) {
	for _, p := range r.state().properties {
		if p.DataSource == dataSource && p.SourcePropertyID == sourcePropertyID {
			return &p, nil
		}
	}
	return nil, domain.ErrPropertyNotFound
}

func (r *memProperties) Insert(ctx context.Context, record *domain.PropertyRecord) error {
	if r.store.insertErr != nil {
		if err := r.store.insertErr(record); err != nil {
			return err
		}
	}
	st := r.state()
	for _, p := range st.properties {
		if p.DataSource == record.DataSource && p.SourcePropertyID == record.SourcePropertyID {
			return &domain.IntegrityError{Constraint: "properties_natural_key", Message: "duplicate natural key"}
		}
	}
	r.store.writes++
	st.properties[record.ID] = *record
	return nil
}

func (r *memProperties) Update(ctx context.Context, record *domain.PropertyRecord) error {
	r.store.writes++
	r.state().properties[record.ID] = *record
	return nil
}

func (r *memProperties) InsertSnapshot(ctx context.Context, snapshot domain.PropertyHistorySnapshot) error {
	st := r.state()
	r.store.writes++
	st.snapshots = append(st.snapshots, snapshot)
	return nil
}

func (r *memProperties) ReplaceImages(ctx context.Context, propertyID uuid.UUID, urls []string) error {
	r.store.writes++
	r.state().images[propertyID] = append([]string(nil), urls...)
	return nil
}

func (r *memProperties) CountActiveByCommunities(ctx context.Context, communityIDs []uuid.UUID) (int64, error) {
	var n int64
	for _, p := range r.state().properties {
		if p.IsActive && containsID(communityIDs, p.CommunityID) {
			n++
		}
	}
	return n, nil
}

func (r *memProperties) ReassignCommunity(ctx context.Context, fromIDs []uuid.UUID, toID uuid.UUID) (int64, error) {
	if err := r.store.check("reassign"); err != nil {
		return 0, err
	}
	st := r.state()
	var n int64
	for id, p := range st.properties {
		if p.IsActive && containsID(fromIDs, p.CommunityID) {
			p.CommunityID = toID
			st.properties[id] = p
			n++
		}
	}
	r.store.writes++
	return n, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

type memSink struct {
	mu      sync.Mutex
	records []domain.FailedRecord
	err     error
}

func (s *memSink) Record(ctx context.Context, record domain.FailedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func (s *memSink) ListUnhandled(ctx context.Context, limit, offset int) ([]domain.FailedRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.FailedRecord
	for _, r := range s.records {
		if !r.IsHandled {
			out = append(out, r)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return []domain.FailedRecord{}, total, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *memSink) MarkHandled(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].IsHandled = true
			return nil
		}
	}
	return domain.ErrFailedRecordNotFound
}

type memFiles struct {
	saved map[string][]domain.FailedRow
	cols  []string
}

func (f *memFiles) Save(ctx context.Context, columns []string, rows []domain.FailedRow) (string, error) {
	if f.saved == nil {
		f.saved = map[string][]domain.FailedRow{}
	}
	id := uuid.NewString()
	f.saved[id] = rows
	f.cols = columns
	return "/api/v1/imports/failures/" + id, nil
}

func (f *memFiles) Get(ctx context.Context, fileID string) ([]byte, error) {
	if _, ok := f.saved[fileID]; !ok {
		return nil, domain.ErrFailureFileNotFound
	}
	return []byte("ok"), nil
}

type memReporter struct {
	imports []domain.ImportSummary
	merges  []domain.MergeSummary
}

func (r *memReporter) ReportImport(ctx context.Context, summary domain.ImportSummary) error {
	r.imports = append(r.imports, summary)
	return nil
}

func (r *memReporter) ReportMerge(ctx context.Context, summary domain.MergeSummary) error {
	r.merges = append(r.merges, summary)
	return nil
}
