package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// readLine prompts with label and returns the trimmed next line, or io.EOF
// once the input is exhausted.
func (c *Console) readLine(label string) (string, error) {
	c.printf("%s: ", label)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

// readString asks until a non-empty answer is given, or returns def on an
// empty answer when def is not empty.
func (c *Console) readString(label, def string) (string, error) {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	for {
		s, err := c.readLine(label)
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
		if def != "" {
			return def, nil
		}
		c.printf("A value is required.\n")
	}
}

// readOptional returns whatever was typed, including nothing.
func (c *Console) readOptional(label, def string) (string, error) {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	s, err := c.readLine(label)
	if err != nil {
		return "", err
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

func (c *Console) readInt(label string, def *int) (int, error) {
	if def != nil {
		label = fmt.Sprintf("%s [%d]", label, *def)
	}
	for {
		s, err := c.readLine(label)
		if err != nil {
			return 0, err
		}
		if s == "" && def != nil {
			return *def, nil
		}
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, nil
		}
		c.printf("Please enter a whole number.\n")
	}
}

// readID asks for a positive record id.
func (c *Console) readID(label string) (int, error) {
	for {
		n, err := c.readInt(label, nil)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return n, nil
		}
		c.printf("Ids start at 1.\n")
	}
}

func (c *Console) readFloat(label string, def float64) (float64, error) {
	label = fmt.Sprintf("%s [%g]", label, def)
	for {
		s, err := c.readLine(label)
		if err != nil {
			return 0, err
		}
		if s == "" {
			return def, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return f, nil
		}
		c.printf("Please enter a number.\n")
	}
}

// readDate parses YYYY-MM-DD. An empty answer returns def, which may be the
// zero time when the date is optional.
func (c *Console) readDate(label string, def time.Time) (time.Time, error) {
	shown := "YYYY-MM-DD"
	if !def.IsZero() {
		shown = def.Format(dateLayout)
	}
	label = fmt.Sprintf("%s [%s]", label, shown)
	for {
		s, err := c.readLine(label)
		if err != nil {
			return time.Time{}, err
		}
		if s == "" {
			return def, nil
		}
		t, err := time.Parse(dateLayout, s)
		if err == nil {
			return t, nil
		}
		c.printf("Dates look like 2024-03-01.\n")
	}
}
