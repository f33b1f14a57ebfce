package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-workshop-client/index"
	"go-workshop-client/internal/database"
	"go-workshop-client/internal/helpers"
	"go-workshop-client/internal/models"
)

// Struct to hold job parameters for torrent workers
type torrentJob struct {
	ItemID         models.ItemID
	Title          string
	SourcePath     string
	Trackers       []string
	OutputDir      string
	Overwrite      bool
	GenerateMagnet bool
}

type torrentResult struct {
	ItemID      models.ItemID
	TorrentPath string
	MagnetLink  string
	ContentHash string
}

// torrentWorker generates torrents for queued install folders.
func torrentWorker(id int, jobs <-chan torrentJob, results chan<- torrentResult, wg *sync.WaitGroup, successCounter, failureCounter *atomic.Int64) {
	defer wg.Done()
	log.Debugf("Torrent worker %d starting", id)
	for job := range jobs {
		log.WithFields(log.Fields{"item": job.ItemID, "directory": job.SourcePath}).Infof("Worker %d: generating torrent", id)
		res, err := generateTorrentFile(job)
		if err != nil {
			log.WithError(err).Errorf("Worker %d: failed to generate torrent for item %d", id, job.ItemID)
			failureCounter.Add(1)
			continue
		}
		successCounter.Add(1)
		if results != nil {
			results <- res
		}
	}
	log.Debugf("Torrent worker %d finished", id)
}

var (
	announceURLs        []string
	torrentOutputDir    string
	overwriteTorrents   bool
	generateMagnetLinks bool
)

var torrentCmd = &cobra.Command{
	Use:   "torrent [ITEM_ID]...",
	Short: "Generate .torrent files for installed items",
	Long: `Generates BitTorrent metainfo (.torrent) files from the install folders of
the given items (default: every installed subscribed item). Tracker announce
URLs come from --announce or the Trackers config field. Generated torrent
paths, magnet links and content hashes are recorded in the search index.`,
	RunE: runTorrent,
}

func init() {
	rootCmd.AddCommand(torrentCmd)

	torrentCmd.Flags().StringSliceVar(&announceURLs, "announce", []string{}, "Tracker announce URL (repeatable)")
	torrentCmd.Flags().StringVarP(&torrentOutputDir, "output-dir", "o", "", "Directory to save generated .torrent files (default: inside each install folder)")
	torrentCmd.Flags().BoolVarP(&overwriteTorrents, "overwrite", "f", false, "Overwrite existing .torrent files")
	torrentCmd.Flags().BoolVar(&generateMagnetLinks, "magnet-links", false, "Write a .txt file containing the magnet link alongside each .torrent file")
	torrentCmd.Flags().IntP("concurrency", "c", 4, "Number of concurrent torrent generation workers")
}

func runTorrent(cmd *cobra.Command, args []string) error {
	trackers := announceURLs
	if len(trackers) == 0 {
		trackers = globalConfig.Trackers
	}
	if len(trackers) == 0 {
		return errors.New("at least one tracker is required (--announce or Trackers in config)")
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		log.Warnf("Invalid concurrency value %d, defaulting to 4", concurrency)
		concurrency = 4
	}

	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	var targets []models.ItemID
	if len(args) > 0 {
		targets, err = parseItemIDs(args)
		if err != nil {
			return err
		}
	} else {
		targets = client.SubscribedItems()
	}

	// Titles come from the detail cache when available; missing entries
	// fall back to the numeric id.
	titles := make(map[models.ItemID]string)
	if db, err := database.Open(globalConfig.CachePath); err == nil {
		errFold := db.FoldDetails(func(entry models.CacheEntry) error {
			titles[entry.Record.ID] = entry.Record.Title
			return nil
		})
		if errFold != nil {
			log.WithError(errFold).Warn("Error scanning detail cache for titles")
		}
		db.Close()
	} else {
		log.WithError(err).Debug("Detail cache unavailable, using numeric ids for torrent names")
	}

	// --- Worker Pool Setup ---
	jobs := make(chan torrentJob, concurrency)
	results := make(chan torrentResult, concurrency)
	var wg sync.WaitGroup
	var successCounter atomic.Int64
	var failureCounter atomic.Int64

	for i := 1; i <= concurrency; i++ {
		wg.Add(1)
		go torrentWorker(i, jobs, results, &wg, &successCounter, &failureCounter)
	}

	// Collect results for index updates while workers run.
	var collected []torrentResult
	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		for res := range results {
			collected = append(collected, res)
		}
	}()

	queued := 0
	for _, id := range targets {
		if !client.DownloadStatus(id).Has(models.StateInstalled) {
			log.Debugf("Item %d is not installed, skipping", id)
			continue
		}
		info := client.InstallInfo(id)
		if info.Folder == "" {
			log.Warnf("Item %d reports installed but has no install folder, skipping", id)
			continue
		}
		jobs <- torrentJob{
			ItemID:         id,
			Title:          titles[id],
			SourcePath:     info.Folder,
			Trackers:       trackers,
			OutputDir:      torrentOutputDir,
			Overwrite:      overwriteTorrents,
			GenerateMagnet: generateMagnetLinks,
		}
		queued++
	}
	close(jobs)
	log.Infof("Queued %d torrent job(s), waiting for workers...", queued)

	wg.Wait()
	close(results)
	<-collectDone

	if len(collected) > 0 {
		updateIndexWithTorrents(collected)
	}

	successCount := successCounter.Load()
	failCount := failureCounter.Load()
	log.Infof("Torrent generation complete. Success: %d, Failed: %d", successCount, failCount)
	if failCount > 0 {
		return fmt.Errorf("%d torrents failed to generate", failCount)
	}
	return nil
}

// generateTorrentFile creates a .torrent file for the job's install folder
// and returns paths and hashes for the index.
func generateTorrentFile(job torrentJob) (torrentResult, error) {
	stat, err := os.Stat(job.SourcePath)
	if os.IsNotExist(err) {
		return torrentResult{}, fmt.Errorf("install folder does not exist: %s", job.SourcePath)
	} else if err != nil {
		return torrentResult{}, fmt.Errorf("error stating install folder %s: %w", job.SourcePath, err)
	} else if !stat.IsDir() {
		return torrentResult{}, fmt.Errorf("install path is not a directory: %s", job.SourcePath)
	}

	baseName := helpers.ConvertToSlug(job.Title)
	if baseName == "" {
		baseName = fmt.Sprintf("item_%d", job.ItemID)
	}
	torrentFileName := baseName + ".torrent"

	var outPath string
	if job.OutputDir != "" {
		if !helpers.CheckAndMakeDir(job.OutputDir) {
			return torrentResult{}, fmt.Errorf("error creating output directory %s", job.OutputDir)
		}
		outPath = filepath.Join(job.OutputDir, torrentFileName)
	} else {
		// Place the torrent file inside the install folder
		outPath = filepath.Join(job.SourcePath, torrentFileName)
	}

	if !job.Overwrite {
		if _, err := os.Stat(outPath); err == nil {
			log.WithField("path", outPath).Info("Skipping existing torrent file (use --overwrite to replace)")
			return torrentResult{ItemID: job.ItemID, TorrentPath: outPath}, nil
		} else if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", outPath).Warn("Could not check existing torrent file, attempting to overwrite")
		}
	}

	mi := metainfo.MetaInfo{
		AnnounceList: make([][]string, len(job.Trackers)),
	}
	for i, tracker := range job.Trackers {
		mi.AnnounceList[i] = []string{tracker}
	}
	mi.Announce = job.Trackers[0]
	mi.CreatedBy = "go-workshop-client"

	const pieceLength = 512 * 1024
	info := metainfo.Info{PieceLength: pieceLength}
	if err := info.BuildFromFilePath(job.SourcePath); err != nil {
		return torrentResult{}, fmt.Errorf("error building torrent info from %s: %w", job.SourcePath, err)
	}
	mi.InfoBytes, err = bencode.Marshal(info)
	if err != nil {
		return torrentResult{}, fmt.Errorf("error marshaling torrent info: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return torrentResult{}, fmt.Errorf("error creating torrent file %s: %w", outPath, err)
	}
	defer f.Close()
	if err := mi.Write(f); err != nil {
		return torrentResult{}, fmt.Errorf("error writing torrent file %s: %w", outPath, err)
	}
	log.WithField("path", outPath).Info("Generated torrent file")

	res := torrentResult{ItemID: job.ItemID, TorrentPath: outPath}

	// Fingerprint the largest content file so index entries can be matched
	// against later installs.
	if primary := largestFile(job.SourcePath); primary != "" {
		hash, err := helpers.FileBlake3(primary)
		if err != nil {
			log.WithError(err).Warnf("Failed to hash %s", primary)
		} else {
			res.ContentHash = hash
		}
	}

	if job.GenerateMagnet {
		infoHash := mi.HashInfoBytes()
		magnetParts := []string{
			fmt.Sprintf("magnet:?xt=urn:btih:%s", infoHash.HexString()),
			fmt.Sprintf("dn=%s", url.QueryEscape(stat.Name())),
		}
		for _, tracker := range job.Trackers {
			magnetParts = append(magnetParts, fmt.Sprintf("tr=%s", url.QueryEscape(tracker)))
		}
		res.MagnetLink = strings.Join(magnetParts, "&")

		magnetFileName := strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath)) + "-magnet.txt"
		magnetOutPath := filepath.Join(filepath.Dir(outPath), magnetFileName)
		if err := os.WriteFile(magnetOutPath, []byte(res.MagnetLink), 0644); err != nil {
			// Log but don't fail the torrent just for the magnet link
			log.WithError(err).WithField("path", magnetOutPath).Error("Failed to write magnet link file")
		}
	}

	return res, nil
}

// largestFile returns the path of the biggest regular file under dir, or ""
// when the directory holds none.
func largestFile(dir string) string {
	var best string
	var bestSize int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if info.Mode().IsRegular() && info.Size() > bestSize {
			best, bestSize = path, info.Size()
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warnf("Error walking %s for content hashing", dir)
	}
	return best
}

// updateIndexWithTorrents merges torrent metadata into the search index.
func updateIndexWithTorrents(results []torrentResult) {
	db, err := database.Open(globalConfig.CachePath)
	if err != nil {
		log.WithError(err).Warn("Could not open detail cache, skipping index update")
		return
	}
	defer db.Close()

	idx, err := index.OpenOrCreateIndex(globalConfig.IndexPath)
	if err != nil {
		log.WithError(err).Warn("Could not open search index, skipping index update")
		return
	}
	defer idx.Close()

	for _, res := range results {
		entry, err := db.GetDetail(res.ItemID)
		if err != nil {
			log.Debugf("No cached record for item %d, indexing torrent data only", res.ItemID)
			entry = models.CacheEntry{Record: models.DetailRecord{ID: res.ItemID}}
		}
		item := index.FromRecord(entry)
		item.TorrentPath = res.TorrentPath
		item.MagnetLink = res.MagnetLink
		item.ContentHash = res.ContentHash
		if err := index.IndexItem(idx, item); err != nil {
			log.WithError(err).Warnf("Failed to index torrent data for item %d", res.ItemID)
		}
	}
	log.Debugf("Indexed torrent data for %d item(s)", len(results))
}
