package sqlitelogger

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode"

	proxy "github.com/shogo82148/go-sql-proxy"
	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmetrics/internal/ctxclock"
	"fknsrs.biz/p/ytmetrics/internal/ctxlogger"
	"fknsrs.biz/p/ytmetrics/internal/logging"
)

var (
	ErrCancelLogging = fmt.Errorf("cancel logging")
)

type Stats struct {
	Start    time.Time
	Duration time.Duration
	Stack    []runtime.Frame

	query     string
	queryText string
	queryArgs []driver.NamedValue
}

func (s *Stats) Query() string {
	if s.query == "" && s.queryText != "" {
		s.query = printQuery(s.queryText, s.queryArgs)
	}
	return s.query
}

type Filter interface {
	PreCollection(ctx context.Context, stats *Stats) error
	PreLogging(ctx context.Context, stats *Stats) error
	HideStackFrame(ctx context.Context, index int, frame runtime.Frame) (bool, error)
}

func now(ctx context.Context) time.Time {
	if t, err := ctxclock.Now(ctx); err == nil {
		return t
	}

	return time.Now()
}

func makeStats(ctx context.Context, stmt *proxy.Stmt, args []driver.NamedValue, filters []Filter) (*Stats, error) {
	stats := &Stats{
		Start: now(ctx),
		Stack: logging.GetStack(100, 1),
	}

	if stmt != nil {
		stats.queryText = stmt.QueryString
		stats.queryArgs = args
	}

	for _, filter := range filters {
		if err := filter.PreCollection(ctx, stats); err != nil {
			if err == ErrCancelLogging {
				return nil, nil
			}

			return nil, err
		}
	}

	return stats, nil
}

func logStats(ctx context.Context, upperError error, qctx interface{}, filters []Filter, prefix, message string) error {
	if upperError != nil {
		return upperError
	}

	stats, ok := qctx.(*Stats)
	if !ok || stats == nil {
		return nil
	}

	stats.Duration = now(ctx).Sub(stats.Start)

	for _, filter := range filters {
		if err := filter.PreLogging(ctx, stats); err != nil {
			if err == ErrCancelLogging {
				return nil
			}

			return err
		}
	}

	fields := logrus.Fields{
		prefix + ".start":    stats.Start.Format(time.RFC3339),
		prefix + ".duration": stats.Duration,
		prefix + ".content":  stats.Query(),
	}

	shown := 0

loop:
	for index, frame := range stats.Stack {
		for _, filter := range filters {
			hide, err := filter.HideStackFrame(ctx, index, frame)
			if err != nil {
				return err
			}
			if hide {
				continue loop
			}
		}

		fields[fmt.Sprintf("%s.stack.%02d", prefix, shown)] = logging.FormatStackFrame(frame)
		shown++
	}

	ctxlogger.GetLogger(ctx).WithFields(fields).Info(message)

	return nil
}

// New wraps a driver so that statements and transactions are logged through
// the logger on the calling context.
func New(wrapped driver.Driver, filters ...Filter) driver.Driver {
	return proxy.NewProxyContext(wrapped, &proxy.HooksContext{
		PreExec: func(ctx context.Context, stmt *proxy.Stmt, args []driver.NamedValue) (interface{}, error) {
			return makeStats(ctx, stmt, args, filters)
		},
		PostExec: func(ctx context.Context, qctx interface{}, stmt *proxy.Stmt, args []driver.NamedValue, _ driver.Result, err error) error {
			return logStats(ctx, err, qctx, filters, "sql.exec", "sql exec")
		},
		PreQuery: func(ctx context.Context, stmt *proxy.Stmt, args []driver.NamedValue) (interface{}, error) {
			return makeStats(ctx, stmt, args, filters)
		},
		PostQuery: func(ctx context.Context, qctx interface{}, stmt *proxy.Stmt, args []driver.NamedValue, _ driver.Rows, err error) error {
			return logStats(ctx, err, qctx, filters, "sql.query", "sql query")
		},
		PreBegin: func(ctx context.Context, conn *proxy.Conn) (interface{}, error) {
			return makeStats(ctx, nil, nil, filters)
		},
		PostBegin: func(ctx context.Context, qctx interface{}, conn *proxy.Conn, err error) error {
			return logStats(ctx, err, qctx, filters, "sql.tx_begin", "sql tx begin")
		},
		PreCommit: func(ctx context.Context, tx *proxy.Tx) (interface{}, error) {
			return makeStats(ctx, nil, nil, filters)
		},
		PostCommit: func(ctx context.Context, qctx interface{}, tx *proxy.Tx, err error) error {
			return logStats(ctx, err, qctx, filters, "sql.tx_commit", "sql tx commit")
		},
		PreRollback: func(ctx context.Context, tx *proxy.Tx) (interface{}, error) {
			return makeStats(ctx, nil, nil, filters)
		},
		PostRollback: func(ctx context.Context, qctx interface{}, tx *proxy.Tx, err error) error {
			return logStats(ctx, err, qctx, filters, "sql.tx_rollback", "sql tx rollback")
		},
	})
}

type BasicFilter struct {
	CancelAll                bool
	LogSlowerThan            time.Duration
	IgnorePackageStackFrames []string
}

func (b *BasicFilter) PreCollection(ctx context.Context, stats *Stats) error {
	if b.CancelAll {
		return ErrCancelLogging
	}

	return nil
}

func (b *BasicFilter) PreLogging(ctx context.Context, stats *Stats) error {
	if b.LogSlowerThan != 0 && stats.Duration < b.LogSlowerThan {
		return ErrCancelLogging
	}

	return nil
}

func (b *BasicFilter) HideStackFrame(ctx context.Context, index int, frame runtime.Frame) (bool, error) {
	for _, packageName := range b.IgnorePackageStackFrames {
		if strings.HasPrefix(frame.Function, packageName+".") || strings.HasPrefix(frame.Function, packageName+"/") {
			return true, nil
		}
	}

	return false, nil
}

var (
	placeholderPattern = regexp.MustCompile(`\?[0-9]*|\$[0-9]+`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// printQuery inlines arguments into a query for display. Both positional
// (?, ?N) and numbered ($N) placeholders are understood.
func printQuery(sqlString string, args []driver.NamedValue) string {
	next := 0

	s := placeholderPattern.ReplaceAllStringFunc(sqlString, func(p string) string {
		i := next
		if len(p) > 1 {
			n, err := strconv.Atoi(p[1:])
			if err != nil {
				return p
			}
			i = n - 1
		}
		next = i + 1

		if i < 0 || i >= len(args) {
			return p
		}

		return formatValue(args[i].Value)
	})

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func formatValue(v driver.Value) string {
	switch e := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return strconv.FormatBool(e)
	case int64:
		return strconv.FormatInt(e, 10)
	case float64:
		return strconv.FormatFloat(e, 'f', -1, 64)
	case time.Time:
		return "'" + e.Format(time.RFC3339Nano) + "'"
	case string:
		return makePrintable(e, "'"+e+"'")
	case []byte:
		return makePrintable(string(e), "'"+string(e)+"'")
	default:
		s := fmt.Sprintf("%v", e)
		return makePrintable(s, "'"+s+"'")
	}
}

func makePrintable(s, quoted string) string {
	if r, ok := printable(s); !ok {
		return fmt.Sprintf("[%d bytes of binary data (%q)]", len(s), r)
	}
	return quoted
}

func printable(s string) (rune, bool) {
	for _, r := range s {
		if unicode.IsControl(r) {
			return r, false
		}

		if !unicode.IsPrint(r) {
			return r, false
		}
	}

	return 0, true
}
