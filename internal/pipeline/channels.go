package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmetrics/internal/catchpanic"
	"fknsrs.biz/p/ytmetrics/internal/compare"
	"fknsrs.biz/p/ytmetrics/internal/ctxlogger"
	"fknsrs.biz/p/ytmetrics/internal/metrics"
	"fknsrs.biz/p/ytmetrics/models"
)

type ChannelReport struct {
	Summaries   []models.ChannelSummary
	Comparisons []compare.ChannelComparison
	// Failed holds inputs that could not be resolved or fetched.
	Failed map[string]error
}

// ChannelReport resolves each input to a channel, samples its latest n
// uploads (the runner's LatestVideos when n is zero) and compares the
// channels.
func (r *Runner) ChannelReport(ctx context.Context, inputs []string, n int) (*ChannelReport, error) {
	inputs = cleanInputs(inputs)
	if len(inputs) == 0 {
		return nil, fmt.Errorf("pipeline.Runner.ChannelReport: %w", ErrNoInput)
	}
	if n <= 0 {
		n = r.opts.LatestVideos
	}

	l := ctxlogger.GetLogger(ctx)

	report := &ChannelReport{Failed: make(map[string]error)}

	ids := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline.Runner.ChannelReport: %w", err)
		}

		id, err := r.client.ResolveChannel(ctx, input)
		if err != nil {
			l.WithError(err).WithField("channel.input", input).Warn("could not resolve channel")
			report.Failed[input] = err
			continue
		}

		ids = append(ids, id)
	}

	ids = cleanInputs(ids)
	channels := r.client.GetChannelDetails(ctx, ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline.Runner.ChannelReport: %w", err)
		}

		cctx, cl := ctxlogger.WithFields(ctx, logrus.Fields{"channel.id": id})

		channel, ok := channels[id]
		if !ok {
			cl.Warn("channel details not found")
			report.Failed[id] = fmt.Errorf("pipeline.Runner.ChannelReport: channel %s not found", id)
			continue
		}

		summary, err := catchpanic.CatchErr1(func() (models.ChannelSummary, error) {
			latest := r.client.GetLatestVideosForChannel(cctx, id, n)
			return metrics.SummarizeChannel(channel, latest), nil
		})
		if err != nil {
			cl.WithError(err).Error("channel failed")
			report.Failed[id] = err
			continue
		}

		cl.WithFields(logrus.Fields{
			"channel.title":  channel.Title,
			"channel.sample": summary.SampleSize,
		}).Info("summarized channel")

		report.Summaries = append(report.Summaries, summary)
	}

	report.Comparisons = compare.CompareChannels(report.Summaries)

	return report, nil
}
