package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"mileagecal/internal/config"
	apperrors "mileagecal/internal/errors"
	"mileagecal/internal/model"
)

// readInput builds the run input from flags, asking on w/r for anything
// missing. The threshold prompt offers the configured default.
func readInput(flags flagConfig, conf *config.Config, loc *time.Location, r io.Reader, w io.Writer) (model.DateRangeInput, error) {
	startStr, endStr, milesStr := flags.start, flags.end, ""
	if flags.maxMiles != 0 {
		milesStr = strconv.FormatFloat(flags.maxMiles, 'f', -1, 64)
	}

	if startStr == "" || endStr == "" || milesStr == "" {
		br := bufio.NewReader(r)
		ask := func(q string) (string, error) {
			fmt.Fprint(w, q)
			line, err := br.ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && line != "") {
				return "", apperrors.NewValidation("no input", err)
			}
			return strings.TrimSpace(line), nil
		}

		var err error
		if startStr == "" || endStr == "" {
			fmt.Fprintln(w, "Please enter dates in YYYY-MM-DD format")
		}
		if startStr == "" {
			if startStr, err = ask("Start date: "); err != nil {
				return model.DateRangeInput{}, err
			}
		}
		if endStr == "" {
			if endStr, err = ask("End date: "); err != nil {
				return model.DateRangeInput{}, err
			}
		}
		if milesStr == "" {
			q := "Maximum one-way distance to include (in miles): "
			if conf.MaxOneWayMiles > 0 {
				q = fmt.Sprintf("Maximum one-way distance to include (in miles) [%s]: ", strconv.FormatFloat(conf.MaxOneWayMiles, 'f', -1, 64))
			}
			if milesStr, err = ask(q); err != nil {
				return model.DateRangeInput{}, err
			}
			if milesStr == "" && conf.MaxOneWayMiles > 0 {
				milesStr = strconv.FormatFloat(conf.MaxOneWayMiles, 'f', -1, 64)
			}
		}
	}

	return parseInput(startStr, endStr, milesStr, loc)
}

// parseInput turns the raw answers into a DateRangeInput covering the start
// day from midnight to the end day at 23:59:59.999 in loc.
func parseInput(startStr, endStr, milesStr string, loc *time.Location) (model.DateRangeInput, error) {
	start, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(startStr), loc)
	if err != nil {
		return model.DateRangeInput{}, apperrors.NewValidation("invalid date format", err)
	}
	endDay, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(endStr), loc)
	if err != nil {
		return model.DateRangeInput{}, apperrors.NewValidation("invalid date format", err)
	}
	miles, err := strconv.ParseFloat(strings.TrimSpace(milesStr), 64)
	if err != nil || math.IsNaN(miles) || miles <= 0 {
		return model.DateRangeInput{}, apperrors.NewValidation("invalid distance, please enter a positive number")
	}

	in := model.DateRangeInput{
		Start:          start,
		End:            endOfDay(endDay),
		MaxOneWayMiles: miles,
	}
	if _, err := in.Validate(); err != nil {
		return model.DateRangeInput{}, err
	}
	return in, nil
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
