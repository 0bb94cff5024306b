package memorystorage_test

import (
	"testing"

	"github.com/moklem/tv-herren-bereich/internal/storage"
	memorystorage "github.com/moklem/tv-herren-bereich/internal/storage/memory"
	"github.com/moklem/tv-herren-bereich/internal/storage/storagetest"
)

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		t.Helper()
		return memorystorage.New()
	})
}
