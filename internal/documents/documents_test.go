package documents

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	docs []*Document
}

func (m *memStore) Create(_ context.Context, doc *Document) error {
	doc.ID = "doc-1"
	m.docs = append(m.docs, doc)
	return nil
}

func (m *memStore) List(_ context.Context, orgID, category string) ([]*Document, error) {
	var res []*Document
	for _, d := range m.docs {
		if d.OrganizationID != orgID {
			continue
		}
		if category != "" && d.Category != category {
			continue
		}
		res = append(res, d)
	}
	return res, nil
}

func (m *memStore) Delete(_ context.Context, orgID, id string) error {
	for i, d := range m.docs {
		if d.ID == id && d.OrganizationID == orgID {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func TestCreateRequiresAbsoluteURL(t *testing.T) {
	svc := NewService(&memStore{}, nil)

	for _, bad := range []string{"", "not-a-url", "/relative/path", "example.com/doc.pdf"} {
		_, err := svc.Create(context.Background(), "org-1", "user-1", CreateInput{
			Title: "Handbook",
			URL:   bad,
		})
		assert.ErrorIs(t, err, ErrInvalidInput, "url %q", bad)
	}

	doc, err := svc.Create(context.Background(), "org-1", "user-1", CreateInput{
		Title: " Volunteer Handbook ",
		URL:   "https://files.example.org/handbook.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "Volunteer Handbook", doc.Title)
}

func TestListFiltersByCategory(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, nil)

	_, err := svc.Create(context.Background(), "org-1", "u", CreateInput{
		Title: "Waiver", Category: "forms", URL: "https://x.org/waiver.pdf",
	})
	require.NoError(t, err)

	listed, err := svc.List(context.Background(), "org-1", "forms")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	listed, err = svc.List(context.Background(), "org-1", "policies")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestPGStoreListCategoryPredicate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`from documents where organization_id=\$1 and category=\$2`).
		WithArgs("org-1", "forms").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "title", "category", "url", "uploaded_by", "created_at", "updated_at",
		}))

	store := NewPGStore(db)
	_, err = store.List(context.Background(), "org-1", "forms")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
