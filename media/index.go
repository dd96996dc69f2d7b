package media

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/facette/natsort"
	cache "github.com/patrickmn/go-cache"
	"github.com/tkoenig/genealogybackend/models"
)

const (
	indexCacheTTL     = 30 * time.Second
	indexCacheCleanup = time.Minute

	globalCacheKey = "global"
)

// Index answers cross-person photo queries by scanning every person's
// metadata document. There is no central index file to drift out of sync;
// the O(people) scan cost is acceptable at personal-archive scale and is
// softened by a short-TTL cache that the archive watcher invalidates.
type Index struct {
	area  *Area
	cache *cache.Cache
}

func NewIndex(area *Area) *Index {
	return &Index{
		area:  area,
		cache: cache.New(indexCacheTTL, indexCacheCleanup),
	}
}

// Invalidate drops all cached scan results. Called on watcher events.
func (ix *Index) Invalidate() {
	ix.cache.Flush()
}

// personDirs lists the numeric person directories under the people root.
func (ix *Index) personDirs() []int64 {
	entries, err := os.ReadDir(ix.area.peopleRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("index: failed to read people root %s: %v", ix.area.peopleRoot, err)
		}
		return nil
	}
	var ids []int64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue // not a person directory
		}
		ids = append(ids, id)
	}
	return ids
}

func sortByFilename(photos []models.Photo) {
	sort.SliceStable(photos, func(i, j int) bool {
		return natsort.Compare(photos[i].Filename, photos[j].Filename)
	})
}

// AllGlobal returns every photo record in the archive, owner attached.
func (ix *Index) AllGlobal() []models.Photo {
	if cached, ok := ix.cache.Get(globalCacheKey); ok {
		return cached.([]models.Photo)
	}

	var all []models.Photo
	for _, owner := range ix.personDirs() {
		all = append(all, ix.area.Photos(owner)...)
	}
	sortByFilename(all)
	ix.cache.Set(globalCacheKey, all, cache.DefaultExpiration)
	return all
}

// AllForPerson returns the union of photos owned by the person and photos
// in any collection that tag the person, scanned across every area.
func (ix *Index) AllForPerson(personID int64) []models.Photo {
	key := fmt.Sprintf("person:%d", personID)
	if cached, ok := ix.cache.Get(key); ok {
		return cached.([]models.Photo)
	}

	var matched []models.Photo
	for _, owner := range ix.personDirs() {
		for _, photo := range ix.area.Photos(owner) {
			if photo.Owner == personID || models.ContainsID(photo.People, personID) {
				matched = append(matched, photo)
			}
		}
	}
	sortByFilename(matched)
	ix.cache.Set(key, matched, cache.DefaultExpiration)
	return matched
}

// FindPhoto scans every person's metadata document until a matching photo
// id is found.
func (ix *Index) FindPhoto(photoID int64) (models.Photo, error) {
	for _, owner := range ix.personDirs() {
		for _, photo := range ix.area.Photos(owner) {
			if photo.ID == photoID {
				return photo, nil
			}
		}
	}
	return models.Photo{}, ErrNotFound
}

// FindPhotoPath resolves a photo id to its backing file path, or ErrNotFound
// when no person's collection contains it (or the file itself is gone).
func (ix *Index) FindPhotoPath(photoID int64) (string, error) {
	photo, err := ix.FindPhoto(photoID)
	if err != nil {
		return "", err
	}
	return ix.area.ResolvePhotoPath(photo.Owner, photo.Filename)
}

// ResolveMany maps photo ids to their records, skipping unknown ids. Used
// by the export endpoints.
func (ix *Index) ResolveMany(photoIDs []int64) []models.Photo {
	var out []models.Photo
	for _, id := range photoIDs {
		photo, err := ix.FindPhoto(id)
		if err != nil {
			log.Printf("index: skipping unknown photo id %d", id)
			continue
		}
		out = append(out, photo)
	}
	return out
}
