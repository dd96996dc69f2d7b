package workers

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/tkoenig/genealogybackend/media"
)

// TaskType constants
const (
	TaskThumbnail = "thumbnail"
	TaskMetadata  = "metadata"
)

// PhotoJob asks for one post-processing task on one imported photo.
type PhotoJob struct {
	OwnerID  int64
	PhotoID  int64
	Filename string
	TaskType string
}

// PhotoProcessor runs a small worker pool over imported photos: thumbnail
// generation and metadata backfill (aspect ratio, EXIF capture date). All
// writes go back through the media area, so they serialize against UI
// edits on the same metadata document.
type PhotoProcessor struct {
	JobQueue chan PhotoJob
	Area     *media.Area
	MaxSize  int
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex
}

func NewPhotoProcessor(area *media.Area, thumbnailMaxSize, queueSize, numWorkers int) *PhotoProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &PhotoProcessor{
		JobQueue: make(chan PhotoJob, queueSize),
		Area:     area,
		MaxSize:  thumbnailMaxSize,
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d photo processing worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

// EnqueuePhoto queues both post-processing tasks for a freshly imported
// photo. Duplicate requests for a task still pending are dropped.
func (pp *PhotoProcessor) EnqueuePhoto(ownerID, photoID int64, filename string) {
	for _, task := range []string{TaskMetadata, TaskThumbnail} {
		pp.enqueue(PhotoJob{OwnerID: ownerID, PhotoID: photoID, Filename: filename, TaskType: task})
	}
}

func (pp *PhotoProcessor) enqueue(job PhotoJob) {
	key := fmt.Sprintf("%d:%d:%s", job.OwnerID, job.PhotoID, job.TaskType)
	pp.Mutex.Lock()
	if pp.Pending[key] {
		pp.Mutex.Unlock()
		return
	}
	pp.Pending[key] = true
	pp.Mutex.Unlock()

	select {
	case pp.JobQueue <- job:
	default:
		log.Printf("Worker queue full, dropping %s job for photo %d", job.TaskType, job.PhotoID)
		pp.Mutex.Lock()
		delete(pp.Pending, key)
		pp.Mutex.Unlock()
	}
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (pp *PhotoProcessor) Stop() {
	close(pp.StopChan)
	pp.Wg.Wait()
}

func (pp *PhotoProcessor) worker(id int) {
	defer pp.Wg.Done()

	log.Printf("Photo worker %d started", id)
	for {
		select {
		case job, ok := <-pp.JobQueue:
			if !ok {
				log.Printf("Photo worker %d stopping: job queue closed", id)
				return
			}

			switch job.TaskType {
			case TaskThumbnail:
				pp.processThumbnailTask(job)
			case TaskMetadata:
				pp.processMetadataTask(job)
			default:
				log.Printf("Worker %d: ERROR unknown task type '%s' for photo %d", id, job.TaskType, job.PhotoID)
			}

			key := fmt.Sprintf("%d:%d:%s", job.OwnerID, job.PhotoID, job.TaskType)
			pp.Mutex.Lock()
			delete(pp.Pending, key)
			pp.Mutex.Unlock()

		case <-pp.StopChan:
			log.Printf("Photo worker %d stopping: stop signal received", id)
			return
		}
	}
}

// processThumbnailTask writes a fitted jpeg into the owner's .thumbs dir
func (pp *PhotoProcessor) processThumbnailTask(job PhotoJob) {
	srcPath, err := pp.Area.ResolvePhotoPath(job.OwnerID, job.Filename)
	if err != nil {
		log.Printf("Worker: skipping thumbnail for photo %d: %v", job.PhotoID, err)
		return
	}

	img, err := imaging.Open(srcPath)
	if err != nil {
		log.Printf("Worker: ERROR opening %s for thumbnail: %v", srcPath, err)
		return
	}
	thumb := imaging.Fit(img, pp.MaxSize, pp.MaxSize, imaging.Lanczos)

	thumbPath := pp.Area.ThumbnailPath(job.OwnerID, job.Filename)
	if err := os.MkdirAll(filepath.Dir(thumbPath), 0755); err != nil {
		log.Printf("Worker: ERROR creating thumbnail directory for photo %d: %v", job.PhotoID, err)
		return
	}
	if err := imaging.Save(thumb, thumbPath, imaging.JPEGQuality(80)); err != nil {
		log.Printf("Worker: ERROR saving thumbnail for photo %d: %v", job.PhotoID, err)
		return
	}
	log.Printf("Worker: generated thumbnail for photo %d (%s)", job.PhotoID, job.Filename)
}

// processMetadataTask backfills aspect ratio and, when the record has no
// user-entered date, the EXIF capture date.
func (pp *PhotoProcessor) processMetadataTask(job PhotoJob) {
	srcPath, err := pp.Area.ResolvePhotoPath(job.OwnerID, job.Filename)
	if err != nil {
		log.Printf("Worker: skipping metadata for photo %d: %v", job.PhotoID, err)
		return
	}

	photos := pp.Area.Photos(job.OwnerID)
	for _, photo := range photos {
		if photo.ID != job.PhotoID {
			continue
		}

		if ratio, err := media.AspectRatio(srcPath); err == nil {
			photo.AspectRatio = ratio
		} else {
			log.Printf("Worker: could not read dimensions for photo %d: %v", job.PhotoID, err)
		}
		if photo.DatePhoto == "" {
			if taken, ok := media.CaptureDate(srcPath); ok {
				photo.DatePhoto = taken.Format("2006-01-02")
			}
		}

		if err := pp.Area.UpdatePhoto(job.OwnerID, photo); err != nil {
			log.Printf("Worker: ERROR updating metadata for photo %d: %v", job.PhotoID, err)
		} else {
			log.Printf("Worker: backfilled metadata for photo %d", job.PhotoID)
		}
		return
	}
	log.Printf("Worker: photo %d vanished before metadata backfill", job.PhotoID)
}
