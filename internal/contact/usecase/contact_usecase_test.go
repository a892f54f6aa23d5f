package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crm-backend/internal/contact/domain"
	"crm-backend/internal/contact/repository"
	"crm-backend/pkg/apperrors"
	"crm-backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ContactUsecaseSuite struct {
	suite.Suite
	db      *gorm.DB
	usecase ContactUsecase
}

func TestContactUsecaseSuite(t *testing.T) {
	suite.Run(t, new(ContactUsecaseSuite))
}

func (s *ContactUsecaseSuite) SetupTest() {
	db, err := database.NewMemory()
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(db, &domain.Contact{}, &domain.Action{}))

	s.db = db
	s.usecase = NewContactUsecase(
		repository.NewContactRepository(db),
		repository.NewActionRepository(db),
		zap.NewNop(),
	)
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func (s *ContactUsecaseSuite) TestCreateContactRequiresName() {
	_, err := s.usecase.CreateContact(ContactInput{Name: "  "}, nil)
	s.True(apperrors.Is(err, apperrors.CodeValidation))

	_, err = s.usecase.CreateContact(ContactInput{Name: "Ada", Email: "not-an-email"}, nil)
	s.True(apperrors.Is(err, apperrors.CodeValidation))
}

func (s *ContactUsecaseSuite) TestCreateContactWithFirstAction() {
	contact, err := s.usecase.CreateContact(
		ContactInput{Name: "Ada", Email: "ada@example.com"},
		&ActionInput{Title: "Send deck", DueDate: date(2024, 3, 4)},
	)
	s.Require().NoError(err)

	loaded, err := s.usecase.GetContact(contact.ID)
	s.Require().NoError(err)
	s.Require().Len(loaded.Actions, 1)
	s.Equal("Send deck", loaded.Actions[0].Title)
	s.Equal(domain.ActionStatusPending, loaded.Actions[0].Status)
}

func (s *ContactUsecaseSuite) TestGetContactNotFound() {
	_, err := s.usecase.GetContact("missing")
	s.True(apperrors.Is(err, apperrors.CodeNotFound))
}

func (s *ContactUsecaseSuite) TestUpdateContact() {
	contact, err := s.usecase.CreateContact(ContactInput{Name: "Ada"}, &ActionInput{Title: "Call"})
	s.Require().NoError(err)

	updated, err := s.usecase.UpdateContact(contact.ID, ContactInput{Name: "Ada King", Company: "Engines"})
	s.Require().NoError(err)
	s.Equal("Ada King", updated.Name)

	loaded, err := s.usecase.GetContact(contact.ID)
	s.Require().NoError(err)
	s.Equal("Engines", loaded.Company)
	s.Len(loaded.Actions, 1, "updating a contact keeps its actions")
}

func (s *ContactUsecaseSuite) TestDashboardOrderingAndSearch() {
	mk := func(name, email string, due *time.Time) {
		var first *ActionInput
		if due != nil {
			first = &ActionInput{Title: "follow up " + name, DueDate: due}
		}
		_, err := s.usecase.CreateContact(ContactInput{Name: name, Email: email}, first)
		s.Require().NoError(err)
	}
	mk("zoe", "zoe@acme.com", date(2024, 5, 1))
	mk("Bob", "bob@globex.com", date(2024, 5, 1))
	mk("amy", "amy@acme.com", date(2024, 1, 1))
	mk("Carl", "carl@acme.com", nil)

	dash, err := s.usecase.Dashboard("")
	s.Require().NoError(err)

	var names []string
	for _, e := range dash.Contacts {
		names = append(names, e.Contact.Name)
	}
	s.Equal([]string{"amy", "Bob", "zoe", "Carl"}, names)
	s.Nil(dash.Contacts[3].NextAction)
	s.Require().Len(dash.Upcoming, 3)
	s.Equal("follow up amy", dash.Upcoming[0].Title)
	s.Require().NotNil(dash.Upcoming[0].Contact)
	s.Equal("amy", dash.Upcoming[0].Contact.Name)

	dash, err = s.usecase.Dashboard("ACME")
	s.Require().NoError(err)
	s.Len(dash.Contacts, 3)
}

func (s *ContactUsecaseSuite) TestDashboardSearchFoldsNonASCII() {
	_, err := s.usecase.CreateContact(ContactInput{Name: "Émile Zola", Company: "ÉDITIONS", Email: "emile@zola.fr"}, nil)
	s.Require().NoError(err)
	_, err = s.usecase.CreateContact(ContactInput{Name: "Bob"}, nil)
	s.Require().NoError(err)

	for _, q := range []string{"émile", "ÉMILE", "Émile", "éditions"} {
		dash, err := s.usecase.Dashboard(q)
		s.Require().NoError(err)
		s.Require().Len(dash.Contacts, 1, q)
		s.Equal("Émile Zola", dash.Contacts[0].Contact.Name)
	}
}

func (s *ContactUsecaseSuite) TestFindByEmailFoldsNonASCII() {
	repo := repository.NewContactRepository(s.db)
	_, err := s.usecase.CreateContact(ContactInput{Name: "Jürgen", Email: "JÜRGEN@beispiel.de"}, nil)
	s.Require().NoError(err)

	found, err := repo.FindByEmail("jürgen@Beispiel.de")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal("Jürgen", found.Name)

	missing, err := repo.FindByEmail("jurgen@beispiel.de")
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *ContactUsecaseSuite) TestUpcomingLimitedToFive() {
	contact, err := s.usecase.CreateContact(ContactInput{Name: "Ada"}, nil)
	s.Require().NoError(err)
	for i := 1; i <= 7; i++ {
		_, err := s.usecase.AddAction(contact.ID, ActionInput{Title: "step", DueDate: date(2024, 2, i)})
		s.Require().NoError(err)
	}

	dash, err := s.usecase.Dashboard("")
	s.Require().NoError(err)
	s.Len(dash.Upcoming, 5)
	s.Equal(date(2024, 2, 1).Unix(), dash.Upcoming[0].DueDate.Unix())
}

func (s *ContactUsecaseSuite) TestCompleteActionTwice() {
	contact, err := s.usecase.CreateContact(ContactInput{Name: "Ada"}, &ActionInput{Title: "Call"})
	s.Require().NoError(err)
	actionID := contact.Actions[0].ID

	done, already, err := s.usecase.CompleteAction(actionID, CompleteInput{Notes: "left voicemail", NextTitle: "Email"})
	s.Require().NoError(err)
	s.False(already)
	s.Equal(domain.ActionStatusCompleted, done.Status)
	s.NotNil(done.CompletedAt)

	again, already, err := s.usecase.CompleteAction(actionID, CompleteInput{NextTitle: "Email again"})
	s.Require().NoError(err)
	s.True(already)
	s.Equal("left voicemail", again.CompletionNotes)

	var count int64
	s.Require().NoError(s.db.Model(&domain.Action{}).Where("contact_id = ?", contact.ID).Count(&count).Error)
	s.Equal(int64(2), count, "second completion creates nothing")

	loaded, err := s.usecase.GetContact(contact.ID)
	s.Require().NoError(err)
	s.Require().NotNil(loaded.NextAction())
	s.Equal("Email", loaded.NextAction().Title)
}

func (s *ContactUsecaseSuite) TestCompleteActionRequiresNextTitle() {
	contact, err := s.usecase.CreateContact(ContactInput{Name: "Ada"}, &ActionInput{Title: "Call"})
	s.Require().NoError(err)

	_, _, err = s.usecase.CompleteAction(contact.Actions[0].ID, CompleteInput{})
	s.True(apperrors.Is(err, apperrors.CodeValidation))

	_, _, err = s.usecase.CompleteAction("missing", CompleteInput{NextTitle: "x"})
	s.True(apperrors.Is(err, apperrors.CodeNotFound))
}

type recordingCleaner struct {
	ids []string
	err error
}

func (c *recordingCleaner) PurgeContact(ctx context.Context, contactID string) error {
	c.ids = append(c.ids, contactID)
	return c.err
}

func (s *ContactUsecaseSuite) TestDeleteContactRunsCleaners() {
	contact, err := s.usecase.CreateContact(ContactInput{Name: "Ada"}, &ActionInput{Title: "Call"})
	s.Require().NoError(err)

	cleaner := &recordingCleaner{}
	s.usecase.AddCleaner(cleaner)

	s.Require().NoError(s.usecase.DeleteContact(context.Background(), contact.ID))
	s.Equal([]string{contact.ID}, cleaner.ids)

	var count int64
	s.Require().NoError(s.db.Model(&domain.Action{}).Count(&count).Error)
	s.Zero(count)
	_, err = s.usecase.GetContact(contact.ID)
	s.True(apperrors.Is(err, apperrors.CodeNotFound))
}

func (s *ContactUsecaseSuite) TestDeleteContactStopsOnCleanerError() {
	contact, err := s.usecase.CreateContact(ContactInput{Name: "Ada"}, nil)
	s.Require().NoError(err)
	s.usecase.AddCleaner(&recordingCleaner{err: errors.New("boom")})

	s.Error(s.usecase.DeleteContact(context.Background(), contact.ID))
	_, err = s.usecase.GetContact(contact.ID)
	s.NoError(err)
}

func (s *ContactUsecaseSuite) TestImportCSV() {
	csvData := strings.Join([]string{
		"Name,Email,Company,phone,notes,tags,Next Action,Due Date",
		"Ada,ada@example.com,Engines,,,vip,Send deck,03/04/2024",
		",nobody@example.com,,,,,Ignored,2024-01-01",
		"Bob,bob@example.com,,,,,Call,25/12/2024",
		"Carl,,,,,,Lunch,someday",
		"Dana,,,,,,,",
	}, "\n")

	imported, err := s.usecase.ImportCSV(strings.NewReader(csvData))
	s.Require().NoError(err)
	s.Equal(4, imported)

	dash, err := s.usecase.Dashboard("")
	s.Require().NoError(err)
	byName := map[string]*domain.Contact{}
	for _, e := range dash.Contacts {
		byName[e.Contact.Name] = e.Contact
	}

	s.Require().Contains(byName, "Ada")
	ada := byName["Ada"].NextAction()
	s.Require().NotNil(ada)
	s.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), ada.DueDate.UTC())

	bob := byName["Bob"].NextAction()
	s.Require().NotNil(bob)
	s.Equal(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC), bob.DueDate.UTC())

	carl := byName["Carl"].NextAction()
	s.Require().NotNil(carl)
	s.Nil(carl.DueDate, "unparseable dates give an undated action")

	s.Nil(byName["Dana"].NextAction())
}

func TestParseDueDate(t *testing.T) {
	cases := map[string]*time.Time{
		"2024-03-04": date(2024, 3, 4),
		"03/04/2024": date(2024, 3, 4),
		"13/04/2024": date(2024, 4, 13),
		"":           nil,
		"tomorrow":   nil,
	}
	for in, want := range cases {
		got := ParseDueDate(in)
		if want == nil {
			assert.Nil(t, got, in)
			continue
		}
		require.NotNil(t, got, in)
		assert.True(t, want.Equal(*got), in)
	}
}

func TestNormalizeColumn(t *testing.T) {
	assert.Equal(t, "next_action", normalizeColumn("Next Action"))
	assert.Equal(t, "due_date", normalizeColumn(" due_date "))
	assert.Equal(t, "name", normalizeColumn("\ufeffName"))
}
