package sqlite

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rivulet-sh/rivulet/catalog"
)

func TestCatalogRepositoryTestSuite(t *testing.T) {
	suite.Run(t, &catalog.RepositoryTestSuite{
		Setup: func(t *testing.T) catalog.Repository {
			return NewCatalogRepository(NewTestDB(t))
		},
	})
}
