package location

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
	"go.uber.org/zap"
)

const knotToMeterPerSecond = 0.514444

// NMEASource reads NMEA 0183 sentences from a GPS receiver. Only valid RMC sentences produce
// fixes, they carry position, course and ground speed together.
type NMEASource struct {
	open func() (io.ReadCloser, error)
	now  func() time.Time
	log  *zap.Logger
}

// NewNMEADevice reads from a serial device or a file already configured for the receiver
// (baud rate set with stty, or a gpsd raw pipe).
func NewNMEADevice(path string, log *zap.Logger) *NMEASource {
	return NewNMEASource(func() (io.ReadCloser, error) {
		return os.Open(path)
	}, log)
}

func NewNMEASource(open func() (io.ReadCloser, error), log *zap.Logger) *NMEASource {
	return &NMEASource{open: open, now: time.Now, log: log}
}

func (s *NMEASource) Watch(ctx context.Context, onFix func(datastructure.Fix), onError func(error)) error {
	rc, err := s.open()
	if err != nil {
		err = util.WrapErrorf(err, util.ErrUnavailable, "open nmea device")
		onError(err)
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		rc.Close()
	}()

	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fix, ok := s.parse(line)
		if ok {
			onFix(fix)
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		err = util.WrapErrorf(err, util.ErrUnavailable, "read nmea device")
		onError(err)
		return err
	}
	return nil
}

func (s *NMEASource) parse(line string) (datastructure.Fix, bool) {
	sentence, err := nmea.Parse(line)
	if err != nil {
		s.log.Debug("skip nmea sentence", zap.String("sentence", line), zap.Error(err))
		return datastructure.Fix{}, false
	}
	if sentence.DataType() != nmea.TypeRMC {
		return datastructure.Fix{}, false
	}
	rmc := sentence.(nmea.RMC)
	if rmc.Validity != nmea.ValidRMC {
		return datastructure.Fix{}, false
	}
	return datastructure.NewFix(rmc.Latitude, rmc.Longitude, rmc.Course, rmc.Speed*knotToMeterPerSecond, s.now()), true
}
