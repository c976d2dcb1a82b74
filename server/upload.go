package server

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/RyanBlaney/rdstat/algorithms/common"
	"github.com/RyanBlaney/rdstat/internal/errors"
	"github.com/RyanBlaney/rdstat/logging"
	"github.com/RyanBlaney/rdstat/record"
)

// multipartMemory is how much of a form is buffered before spilling to disk.
const multipartMemory = 32 << 20

// UploadMetadata describes the merged upload. Declared fields come from the
// first file.
type UploadMetadata struct {
	*record.TrialSet
	Channels  []string `json:"channels"`
	NFiles    int      `json:"n_files"`
	Filenames []string `json:"filenames"`
}

// Trace is a sampled signal with its time axis in seconds. Body values such
// as "nan" survive parsing and are written as null.
type Trace struct {
	Signal     common.Series `json:"signal"`
	Times      common.Series `json:"times"`
	SampleRate float64       `json:"sampling_rate,omitempty"`
}

// UploadResponse is returned by POST /api/upload-rd.
type UploadResponse struct {
	Success           bool           `json:"success"`
	Filenames         []string       `json:"filenames"`
	Metadata          UploadMetadata `json:"metadata"`
	AvailableChannels []string       `json:"available_channels"`
	PrimaryChannel    string         `json:"primary_channel"`
	Visualization     Trace          `json:"visualization_data"`
	Full              Trace          `json:"full_signal"`
	Errors            []string       `json:"errors"`
}

// handleUploadRD parses every uploaded rd000 file in trial mode, merges the
// trials across files and returns the trial-averaged display channel. Files
// that fail are reported in errors without failing the request.
func (s *Server) handleUploadRD(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, wrapFormError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.writeError(w, r, errors.InvalidInput("No files provided"))
		return
	}

	var (
		sets      []*record.TrialSet
		filenames []string
		problems  = []string{}
	)
	for _, fh := range headers {
		if fh.Filename == "" {
			continue
		}
		if !record.IsRecordFile(fh.Filename) {
			problems = append(problems, fmt.Sprintf("File %s not allowed", fh.Filename))
			continue
		}
		set, err := parseUploaded(fh)
		if err != nil {
			problems = append(problems, fmt.Sprintf("File %s failed: %v", fh.Filename, err))
			continue
		}
		sets = append(sets, set)
		filenames = append(filenames, fh.Filename)
	}

	if len(sets) == 0 {
		s.writeError(w, r, errors.InvalidInput("No valid files parsed"), problems...)
		return
	}

	merged, err := record.MergeTrialSets(sets...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	channels := sets[0].ChannelNames()
	primary := r.FormValue("channel")
	if primary == "" && len(channels) > 0 {
		primary = channels[0]
	}

	full := Trace{Signal: common.Series{}, Times: common.Series{}, SampleRate: merged.SampleRate}
	if primary != "" {
		signal, err := merged.Average(primary)
		if err != nil {
			s.writeError(w, r, errors.InvalidInput(err.Error()))
			return
		}
		full.Signal = signal
		full.Times = make(common.Series, len(signal))
		for i := range signal {
			full.Times[i] = float64(i) / merged.SampleRate
		}
	}

	s.logger.WithContext(r.Context()).Info("parsed upload", logging.Fields{
		"files":    len(sets),
		"rejected": len(problems),
		"channel":  primary,
		"samples":  len(full.Signal),
	})

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:   true,
		Filenames: filenames,
		Metadata: UploadMetadata{
			TrialSet:  sets[0],
			Channels:  channels,
			NFiles:    len(sets),
			Filenames: filenames,
		},
		AvailableChannels: channels,
		PrimaryChannel:    primary,
		Visualization: Trace{
			Signal: Downsample(full.Signal, DefaultDisplayPoints),
			Times:  Downsample(full.Times, DefaultDisplayPoints),
		},
		Full:   full,
		Errors: problems,
	})
}

func parseUploaded(fh *multipart.FileHeader) (*record.TrialSet, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return record.ParseTrials(f)
}

// wrapFormError classifies multipart parse failures; oversized bodies keep
// their MaxBytesError so they map to 413.
func wrapFormError(err error) error {
	return &errors.AppError{
		Code:    errors.CodeInvalidInput,
		Message: "invalid multipart form",
		Cause:   err,
	}
}
