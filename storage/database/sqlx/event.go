package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/event"
)

const (
	categoryColumns = `id, name, pecking_order, schoolwide, publish, public, for_users, unimportant, busy,
	privileged, created_at, updated_at`
	eventColumns = `id, body, category_id, owner_id, organiser_id, starts_at, ends_at, all_day, private,
	non_existent, collection_id, constrained, complete, created_at, updated_at`
	commitmentColumns = `id, event_id, element_id, status, by_whom_id, reason, created_at, updated_at`
	noteColumns       = `id, parent_type, parent_id, owner_id, title, contents, kind, read_only, visible_staff,
	created_at, updated_at`
	collectionColumns = `id, event_id, requesting_user_id, starts_on, ends_on, days, every_n_weeks,
	created_at, updated_at`
)

var eventOrderFields = map[string]string{
	"starts_at":  "starts_at",
	"ends_at":    "ends_at",
	"body":       "body",
	"created_at": "created_at",
}

type eventRow struct {
	ID           string      `db:"id"`
	Body         string      `db:"body"`
	CategoryID   string      `db:"category_id"`
	OwnerID      null.String `db:"owner_id"`
	OrganiserID  null.String `db:"organiser_id"`
	StartsAt     time.Time   `db:"starts_at"`
	EndsAt       time.Time   `db:"ends_at"`
	AllDay       bool        `db:"all_day"`
	Private      bool        `db:"private"`
	NonExistent  bool        `db:"non_existent"`
	CollectionID null.String `db:"collection_id"`
	Constrained  bool        `db:"constrained"`
	Complete     bool        `db:"complete"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

type commitmentRow struct {
	ID          string      `db:"id"`
	EventID     string      `db:"event_id"`
	ElementID   string      `db:"element_id"`
	Status      string      `db:"status"`
	ByWhomID    null.String `db:"by_whom_id"`
	Reason      null.String `db:"reason"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
	ElementName null.String `db:"element_name"`
	ElementKind null.String `db:"element_kind"`
}

type noteRow struct {
	ID           string      `db:"id"`
	ParentType   string      `db:"parent_type"`
	ParentID     string      `db:"parent_id"`
	OwnerID      null.String `db:"owner_id"`
	Title        string      `db:"title"`
	Contents     string      `db:"contents"`
	Kind         string      `db:"kind"`
	ReadOnly     bool        `db:"read_only"`
	VisibleStaff bool        `db:"visible_staff"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

type collectionRow struct {
	ID               string        `db:"id"`
	EventID          string        `db:"event_id"`
	RequestingUserID null.String   `db:"requesting_user_id"`
	StartsOn         time.Time     `db:"starts_on"`
	EndsOn           time.Time     `db:"ends_on"`
	Days             pq.Int64Array `db:"days"`
	EveryNWeeks      int           `db:"every_n_weeks"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{db: db}
}

// Categories

func (repo eventRepository) CreateCategory(ctx context.Context, cat event.Category) (event.Category, error) {
	cat.ID = uuid.New().String()
	cat.CreatedAt, cat.UpdatedAt = cat.CreatedAt.UTC(), cat.UpdatedAt.UTC()
	q := `INSERT INTO event_category (` + categoryColumns + `) VALUES (:id, :name, :pecking_order, :schoolwide,
		:publish, :public, :for_users, :unimportant, :busy, :privileged, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, categoryRow(cat)); err != nil {
		return event.Category{}, errors.Wrap(err, "inserting category")
	}
	return cat, nil
}

type categoryRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	PeckingOrder int       `db:"pecking_order"`
	Schoolwide   bool      `db:"schoolwide"`
	Publish      bool      `db:"publish"`
	Public       bool      `db:"public"`
	ForUsers     bool      `db:"for_users"`
	Unimportant  bool      `db:"unimportant"`
	Busy         bool      `db:"busy"`
	Privileged   bool      `db:"privileged"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row categoryRow) unboil() event.Category {
	return event.Category(row)
}

func (repo eventRepository) GetCategory(ctx context.Context, id string) (event.Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Category{}, event.ErrCategoryNotFound
	}
	var row categoryRow
	q := repo.db.Rebind("SELECT " + categoryColumns + " FROM event_category WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return event.Category{}, trapNoRowsErr(err, event.ErrCategoryNotFound, "finding category")
	}
	return row.unboil(), nil
}

func (repo eventRepository) QueryCategories(ctx context.Context, names ...string) ([]event.Category, error) {
	var w where
	if len(names) > 0 {
		w.add("name IN (?)", names)
	}
	var rows []categoryRow
	q := "SELECT " + categoryColumns + " FROM event_category" + w.String() + " ORDER BY pecking_order ASC, name ASC"
	if err := selectIn(ctx, repo.db, &rows, q, w.args); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	cats := make([]event.Category, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, row.unboil())
	}
	return cats, nil
}

// foreignKeyViolation is the postgres error code for a row still referenced elsewhere.
const foreignKeyViolation = "23503"

func (repo eventRepository) DeleteCategory(ctx context.Context, id string) error {
	err := deleteByID(ctx, repo.db, "event_category", id, event.ErrCategoryNotFound)
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == foreignKeyViolation {
		return event.ErrCategoryInUse
	}
	return err
}

// Events

func (repo eventRepository) boil(evt event.Event) eventRow {
	return eventRow{
		ID:           evt.ID,
		Body:         evt.Body,
		CategoryID:   evt.CategoryID,
		OwnerID:      nullString(evt.OwnerID),
		OrganiserID:  nullString(evt.OrganiserID),
		StartsAt:     evt.StartsAt.UTC(),
		EndsAt:       evt.EndsAt.UTC(),
		AllDay:       evt.AllDay,
		Private:      evt.Private,
		NonExistent:  evt.NonExistent,
		CollectionID: nullString(evt.CollectionID),
		Constrained:  evt.Constrained,
		Complete:     evt.Complete,
		CreatedAt:    evt.CreatedAt.UTC(),
		UpdatedAt:    evt.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) unboil(row eventRow) event.Event {
	return event.Event{
		ID:           row.ID,
		Body:         row.Body,
		CategoryID:   row.CategoryID,
		OwnerID:      row.OwnerID.String,
		OrganiserID:  row.OrganiserID.String,
		StartsAt:     row.StartsAt,
		EndsAt:       row.EndsAt,
		AllDay:       row.AllDay,
		Private:      row.Private,
		NonExistent:  row.NonExistent,
		CollectionID: row.CollectionID.String,
		Constrained:  row.Constrained,
		Complete:     row.Complete,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	evt.ID = uuid.New().String()
	q := `INSERT INTO event (` + eventColumns + `) VALUES (:id, :body, :category_id, :owner_id, :organiser_id,
		:starts_at, :ends_at, :all_day, :private, :non_existent, :collection_id, :constrained, :complete,
		:created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(evt)); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return evt, nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Event{}, event.ErrNotFound
	}
	var row eventRow
	q := repo.db.Rebind("SELECT " + eventColumns + " FROM event WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return event.Event{}, trapNoRowsErr(err, event.ErrNotFound, "finding event")
	}
	return repo.unboil(row), nil
}

// addOverlap restricts to events taking up time in [start, end); instantaneous events count when inside.
func addOverlap(w *where, prefix string, start, end time.Time) {
	if !end.IsZero() {
		w.add(prefix+"starts_at < ?", end.UTC())
	}
	if !start.IsZero() {
		w.add("("+prefix+"ends_at > ? OR ("+prefix+"ends_at = "+prefix+"starts_at AND "+prefix+"starts_at >= ?))",
			start.UTC(), start.UTC())
	}
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering) ([]event.Event, error) {
	if filter == nil {
		filter = &event.QueryFilter{}
	}
	var w where
	if len(filter.IDs) > 0 {
		w.add("id IN (?)", filter.IDs)
	}
	if !filter.IncludeNonExistent {
		w.add("non_existent = false")
	}
	addOverlap(&w, "", filter.Start, filter.End)
	if filter.OwnerID != "" {
		w.add("owner_id = ?", filter.OwnerID)
	}
	if filter.OrganiserID != "" {
		w.add("organiser_id = ?", filter.OrganiserID)
	}
	if len(filter.CategoryIDs) > 0 {
		w.add("category_id IN (?)", filter.CategoryIDs)
	}
	if len(filter.ElementIDs) > 0 {
		w.add("id IN (SELECT event_id FROM commitment WHERE element_id IN (?))", filter.ElementIDs)
	}
	if filter.CollectionID != "" {
		w.add("collection_id = ?", filter.CollectionID)
	}
	if filter.Search != "" {
		w.add("body ILIKE ?", "%"+filter.Search+"%")
	}

	var rows []eventRow
	q := "SELECT " + eventColumns + " FROM event" + w.String() + orderBy(ordering, eventOrderFields, "starts_at ASC")
	if err := selectIn(ctx, repo.db, &rows, q, w.args); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	evts := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		evts = append(evts, repo.unboil(row))
	}
	return evts, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	q := `UPDATE event SET body = :body, category_id = :category_id, owner_id = :owner_id,
		organiser_id = :organiser_id, starts_at = :starts_at, ends_at = :ends_at, all_day = :all_day,
		private = :private, non_existent = :non_existent, collection_id = :collection_id,
		constrained = :constrained, complete = :complete, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.boil(evt))
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return evt, nil
}

// DeleteEventsByID removes the notes explicitly: they are attached polymorphically, without a foreign key.
func (repo eventRepository) DeleteEventsByID(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var cnt int64
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q, args, err := bind(repo.db, `DELETE FROM note WHERE (parent_type = ? AND parent_id IN (?))
			OR (parent_type = ? AND parent_id IN (SELECT id FROM commitment WHERE event_id IN (?)))`,
			[]interface{}{string(event.ParentEvent), ids, string(event.ParentCommitment), ids})
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return errors.Wrap(err, "deleting event notes")
		}

		q, args, err = bind(repo.db, "DELETE FROM event WHERE id IN (?)", []interface{}{ids})
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return errors.Wrap(err, "deleting events")
		}
		cnt, err = res.RowsAffected()
		return errors.Wrap(err, "counting deleted events")
	})
	return int(cnt), err
}

// Commitments

func (repo eventRepository) boilCommitment(c event.Commitment) commitmentRow {
	return commitmentRow{
		ID:        c.ID,
		EventID:   c.EventID,
		ElementID: c.ElementID,
		Status:    string(c.Status),
		ByWhomID:  nullString(c.ByWhomID),
		Reason:    nullString(c.Reason),
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) unboilCommitment(row commitmentRow) event.Commitment {
	return event.Commitment{
		ID:          row.ID,
		EventID:     row.EventID,
		ElementID:   row.ElementID,
		Status:      event.Status(row.Status),
		ByWhomID:    row.ByWhomID.String,
		Reason:      row.Reason.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		ElementName: row.ElementName.String,
		ElementKind: row.ElementKind.String,
	}
}

const commitmentSelect = `SELECT c.id, c.event_id, c.element_id, c.status, c.by_whom_id, c.reason,
	c.created_at, c.updated_at, el.name AS element_name, el.kind AS element_kind
	FROM commitment c
	JOIN event e ON e.id = c.event_id
	LEFT JOIN element el ON el.id = c.element_id`

func (repo eventRepository) CreateCommitment(ctx context.Context, c event.Commitment) (event.Commitment, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO commitment (` + commitmentColumns + `)
		VALUES (:id, :event_id, :element_id, :status, :by_whom_id, :reason, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boilCommitment(c)); err != nil {
		return event.Commitment{}, errors.Wrap(err, "inserting commitment")
	}
	return repo.GetCommitment(ctx, c.ID)
}

func (repo eventRepository) GetCommitment(ctx context.Context, id string) (event.Commitment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Commitment{}, event.ErrCommitmentNotFound
	}
	var row commitmentRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(commitmentSelect+" WHERE c.id = ?"), id); err != nil {
		return event.Commitment{}, trapNoRowsErr(err, event.ErrCommitmentNotFound, "finding commitment")
	}
	return repo.unboilCommitment(row), nil
}

func (repo eventRepository) QueryCommitments(ctx context.Context, filter event.CommitmentFilter) ([]event.Commitment, error) {
	var w where
	if len(filter.IDs) > 0 {
		w.add("c.id IN (?)", filter.IDs)
	}
	if len(filter.EventIDs) > 0 {
		w.add("c.event_id IN (?)", filter.EventIDs)
	}
	if len(filter.ElementIDs) > 0 {
		w.add("c.element_id IN (?)", filter.ElementIDs)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		w.add("c.status IN (?)", statuses)
	}
	if !filter.IncludeNonExistent {
		w.add("e.non_existent = false")
	}
	addOverlap(&w, "e.", filter.Start, filter.End)

	var rows []commitmentRow
	if err := selectIn(ctx, repo.db, &rows, commitmentSelect+w.String()+" ORDER BY c.created_at ASC", w.args); err != nil {
		return nil, errors.Wrap(err, "querying commitments")
	}
	cs := make([]event.Commitment, 0, len(rows))
	for _, row := range rows {
		cs = append(cs, repo.unboilCommitment(row))
	}
	return cs, nil
}

func (repo eventRepository) UpdateCommitment(ctx context.Context, c event.Commitment) (event.Commitment, error) {
	q := `UPDATE commitment SET status = :status, by_whom_id = :by_whom_id, reason = :reason,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.boilCommitment(c))
	if err != nil {
		return event.Commitment{}, errors.Wrap(err, "updating commitment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Commitment{}, event.ErrCommitmentNotFound
	}
	return c, nil
}

func (repo eventRepository) DeleteCommitment(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return event.ErrCommitmentNotFound
	}
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := "DELETE FROM note WHERE parent_type = $1 AND parent_id = $2"
		if _, err := tx.ExecContext(ctx, q, string(event.ParentCommitment), id); err != nil {
			return errors.Wrap(err, "deleting commitment notes")
		}
		return deleteByID(ctx, tx, "commitment", id, event.ErrCommitmentNotFound)
	})
}

// Notes

func (repo eventRepository) boilNote(n event.Note) noteRow {
	return noteRow{
		ID:           n.ID,
		ParentType:   string(n.ParentType),
		ParentID:     n.ParentID,
		OwnerID:      nullString(n.OwnerID),
		Title:        n.Title,
		Contents:     n.Contents,
		Kind:         string(n.Kind),
		ReadOnly:     n.ReadOnly,
		VisibleStaff: n.VisibleStaff,
		CreatedAt:    n.CreatedAt.UTC(),
		UpdatedAt:    n.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) unboilNote(row noteRow) event.Note {
	return event.Note{
		ID:           row.ID,
		ParentType:   event.ParentType(row.ParentType),
		ParentID:     row.ParentID,
		OwnerID:      row.OwnerID.String,
		Title:        row.Title,
		Contents:     row.Contents,
		Kind:         event.NoteKind(row.Kind),
		ReadOnly:     row.ReadOnly,
		VisibleStaff: row.VisibleStaff,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo eventRepository) CreateNote(ctx context.Context, n event.Note) (event.Note, error) {
	n.ID = uuid.New().String()
	q := `INSERT INTO note (` + noteColumns + `) VALUES (:id, :parent_type, :parent_id, :owner_id, :title,
		:contents, :kind, :read_only, :visible_staff, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boilNote(n)); err != nil {
		return event.Note{}, errors.Wrap(err, "inserting note")
	}
	return n, nil
}

func (repo eventRepository) GetNote(ctx context.Context, id string) (event.Note, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Note{}, event.ErrNoteNotFound
	}
	var row noteRow
	q := repo.db.Rebind("SELECT " + noteColumns + " FROM note WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return event.Note{}, trapNoRowsErr(err, event.ErrNoteNotFound, "finding note")
	}
	return repo.unboilNote(row), nil
}

func (repo eventRepository) QueryNotes(ctx context.Context, filter event.NoteFilter) ([]event.Note, error) {
	var w where
	if filter.ParentType != "" {
		w.add("parent_type = ?", string(filter.ParentType))
	}
	if len(filter.ParentIDs) > 0 {
		w.add("parent_id IN (?)", filter.ParentIDs)
	}
	if filter.Kind != "" {
		w.add("kind = ?", string(filter.Kind))
	}
	var rows []noteRow
	q := "SELECT " + noteColumns + " FROM note" + w.String() + " ORDER BY created_at ASC"
	if err := selectIn(ctx, repo.db, &rows, q, w.args); err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	ns := make([]event.Note, 0, len(rows))
	for _, row := range rows {
		ns = append(ns, repo.unboilNote(row))
	}
	return ns, nil
}

func (repo eventRepository) UpdateNote(ctx context.Context, n event.Note) (event.Note, error) {
	q := `UPDATE note SET title = :title, contents = :contents, read_only = :read_only,
		visible_staff = :visible_staff, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.boilNote(n))
	if err != nil {
		return event.Note{}, errors.Wrap(err, "updating note")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return event.Note{}, event.ErrNoteNotFound
	}
	return n, nil
}

func (repo eventRepository) DeleteNote(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.db, "note", id, event.ErrNoteNotFound)
}

// Collections

func (repo eventRepository) boilCollection(coll event.Collection) collectionRow {
	days := make(pq.Int64Array, 0, len(coll.Days))
	for _, d := range coll.Days {
		days = append(days, int64(d))
	}
	return collectionRow{
		ID:               coll.ID,
		EventID:          coll.EventID,
		RequestingUserID: nullString(coll.RequestingUserID),
		StartsOn:         coll.StartsOn.UTC(),
		EndsOn:           coll.EndsOn.UTC(),
		Days:             days,
		EveryNWeeks:      coll.EveryNWeeks,
		CreatedAt:        coll.CreatedAt.UTC(),
		UpdatedAt:        coll.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) unboilCollection(row collectionRow) event.Collection {
	days := make([]time.Weekday, 0, len(row.Days))
	for _, d := range row.Days {
		days = append(days, time.Weekday(d))
	}
	return event.Collection{
		ID:               row.ID,
		EventID:          row.EventID,
		RequestingUserID: row.RequestingUserID.String,
		StartsOn:         row.StartsOn,
		EndsOn:           row.EndsOn,
		Days:             days,
		EveryNWeeks:      row.EveryNWeeks,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func (repo eventRepository) CreateCollection(ctx context.Context, coll event.Collection) (event.Collection, error) {
	coll.ID = uuid.New().String()
	q := `INSERT INTO event_collection (` + collectionColumns + `) VALUES (:id, :event_id, :requesting_user_id,
		:starts_on, :ends_on, :days, :every_n_weeks, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boilCollection(coll)); err != nil {
		return event.Collection{}, errors.Wrap(err, "inserting collection")
	}
	return coll, nil
}

func (repo eventRepository) GetCollection(ctx context.Context, id string) (event.Collection, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Collection{}, event.ErrCollectionNotFound
	}
	var row collectionRow
	q := repo.db.Rebind("SELECT " + collectionColumns + " FROM event_collection WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return event.Collection{}, trapNoRowsErr(err, event.ErrCollectionNotFound, "finding collection")
	}
	return repo.unboilCollection(row), nil
}

func (repo eventRepository) UpdateCollection(ctx context.Context, coll event.Collection) (event.Collection, error) {
	q := `UPDATE event_collection SET event_id = :event_id, starts_on = :starts_on, ends_on = :ends_on,
		days = :days, every_n_weeks = :every_n_weeks, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.boilCollection(coll))
	if err != nil {
		return event.Collection{}, errors.Wrap(err, "updating collection")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Collection{}, event.ErrCollectionNotFound
	}
	return coll, nil
}
