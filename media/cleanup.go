package media

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// isProtectedName reports whether a file in the area root must survive the
// orphan sweep regardless of whether the biography references it: the
// biography document itself, the photo metadata document, and the avatar
// under any recognized extension.
func isProtectedName(name string) bool {
	if name == BiographyFileName || name == PhotosMetaFileName {
		return true
	}
	return isAvatarName(name)
}

// imageTargets extracts every markdown-style image reference target out of
// the text, i.e. the target portion of "](target)" occurrences.
func imageTargets(text string) []string {
	var targets []string
	rest := text
	for {
		i := strings.Index(rest, "](")
		if i == -1 {
			break
		}
		rest = rest[i+2:]
		j := strings.Index(rest, ")")
		if j == -1 {
			break
		}
		target := strings.TrimSpace(rest[:j])
		if target != "" {
			targets = append(targets, target)
		}
		rest = rest[j+1:]
	}
	return targets
}

// referencedName reduces a reference target to the filename it points at.
// Targets appear either as bare filenames or as fully qualified local-file
// references (asset URLs, file:// paths); in both cases the final path
// segment is the on-disk name.
func referencedName(target string) string {
	target = strings.TrimPrefix(target, "file://")
	if k := strings.IndexAny(target, "?#"); k != -1 {
		target = target[:k]
	}
	target = strings.ReplaceAll(target, "\\", "/")
	if i := strings.LastIndex(target, "/"); i != -1 {
		target = target[i+1:]
	}
	return target
}

// CleanupOrphans is the mark-and-sweep pass run synchronously after every
// biography save: every file in the person's area root that the saved text
// no longer references and that is not protected gets deleted. The photos
// subdirectory is never entered. Returns the names it removed.
func (a *Area) CleanupOrphans(id int64, biography string) ([]string, error) {
	dir := a.Dir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan media area for person %d: %w", id, err)
	}

	referenced := make(map[string]bool)
	for _, target := range imageTargets(biography) {
		referenced[referencedName(target)] = true
	}

	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if isProtectedName(name) || referenced[name] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			log.Printf("media: orphan cleanup failed to remove %s: %v", name, err)
			continue
		}
		removed = append(removed, name)
	}
	return removed, nil
}
