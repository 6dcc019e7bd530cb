package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nebula-ui/nebula-upload/internal/cloud/s3post"
	"github.com/nebula-ui/nebula-upload/internal/config"
	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/gate"
	httpclient "github.com/nebula-ui/nebula-upload/internal/http"
	"github.com/nebula-ui/nebula-upload/internal/logging"
	"github.com/nebula-ui/nebula-upload/internal/metrics"
	"github.com/nebula-ui/nebula-upload/internal/upload"
)

// uploadFlags are the request and check flags shared by upload and watch.
// Flags only override the config file when set explicitly.
type uploadFlags struct {
	action          string
	fieldName       string
	headers         []string
	data            []string
	withCredentials bool
	accept          string
	multiple        bool
	maxSize         int64
	gzip            bool
	include         string
	exclude         string
	s3Bucket        string
	s3Prefix        string
	s3Region        string
}

func (f *uploadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.action, "action", "", "Upload URL")
	cmd.Flags().StringVar(&f.fieldName, "name", "", "Multipart field name for the file (default \"file\")")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Extra request header as Key=Value (repeatable)")
	cmd.Flags().StringArrayVarP(&f.data, "data", "d", nil, "Extra form field as key=value (repeatable)")
	cmd.Flags().BoolVar(&f.withCredentials, "with-credentials", false, "Send and keep cookies across uploads")
	cmd.Flags().StringVar(&f.accept, "accept", "", "Accepted types, e.g. \".png,.jpg\" or \"image/*\"")
	cmd.Flags().BoolVar(&f.multiple, "multiple", false, "Allow more than one file per pick")
	cmd.Flags().Int64Var(&f.maxSize, "max-size", 0, "Reject files larger than this many bytes (0 = unlimited)")
	cmd.Flags().BoolVar(&f.gzip, "gzip", false, "Gzip each file before upload")
	cmd.Flags().StringVar(&f.include, "include", "", "Only upload names matching these globs, e.g. \"*.dat,*.txt\"")
	cmd.Flags().StringVar(&f.exclude, "exclude", "", "Skip names matching these globs (wins over --include)")
	cmd.Flags().StringVar(&f.s3Bucket, "s3-bucket", "", "Post to this S3 bucket with presigned policies instead of --action")
	cmd.Flags().StringVar(&f.s3Prefix, "s3-prefix", "", "Object key prefix for --s3-bucket")
	cmd.Flags().StringVar(&f.s3Region, "s3-region", "", "AWS region for --s3-bucket")
}

// apply copies explicitly set flags onto cfg.
func (f *uploadFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("action") {
		cfg.Action = f.action
	}
	if changed("name") {
		cfg.FieldName = f.fieldName
	}
	if changed("header") {
		headers, err := parseKeyValues(f.headers)
		if err != nil {
			return fmt.Errorf("invalid --header: %w", err)
		}
		cfg.Headers = mergeMaps(cfg.Headers, headers)
	}
	if changed("data") {
		data, err := parseKeyValues(f.data)
		if err != nil {
			return fmt.Errorf("invalid --data: %w", err)
		}
		cfg.Data = mergeMaps(cfg.Data, data)
	}
	if changed("with-credentials") {
		cfg.WithCredentials = f.withCredentials
	}
	if changed("accept") {
		cfg.Accept = f.accept
	}
	if changed("multiple") {
		cfg.Multiple = f.multiple
	}
	if changed("max-size") {
		cfg.MaxSize = f.maxSize
	}
	if changed("gzip") {
		cfg.Gzip = f.gzip
	}
	if changed("include") {
		cfg.Include = f.include
	}
	if changed("exclude") {
		cfg.Exclude = f.exclude
	}
	if changed("s3-bucket") {
		cfg.S3Bucket = f.s3Bucket
	}
	if changed("s3-prefix") {
		cfg.S3Prefix = f.s3Prefix
	}
	if changed("s3-region") {
		cfg.S3Region = f.s3Region
	}
	return nil
}

// parseKeyValues parses "key=value" pairs. "Key: value" is accepted too so
// headers can be pasted as they appear on the wire.
func parseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		sep := strings.IndexAny(pair, "=:")
		if sep <= 0 {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		key := strings.TrimSpace(pair[:sep])
		if key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[key] = strings.TrimSpace(pair[sep+1:])
	}
	return out, nil
}

func mergeMaps(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// beforeUploadCheck builds the check chain from the configured limits.
// Size and type run before compression so they judge the original file.
func beforeUploadCheck(cfg *config.Config) gate.Check {
	var checks []gate.Check
	if cfg.MaxSize > 0 {
		checks = append(checks, gate.MaxSize(cfg.MaxSize))
	}
	if cfg.Accept != "" {
		checks = append(checks, gate.AcceptFilter(cfg.Accept))
	}
	if cfg.Include != "" || cfg.Exclude != "" {
		checks = append(checks, gate.NameFilter(gate.ParsePatternList(cfg.Include), gate.ParsePatternList(cfg.Exclude)))
	}
	if cfg.Gzip {
		checks = append(checks, gate.Gzip())
	}
	if len(checks) == 0 {
		return nil
	}
	return gate.Chain(checks...)
}

// warnDroppedEvents reports events the display never saw. Their records may
// show as aborted even though the upload finished.
func warnDroppedEvents(logger *logging.Logger, bus *events.EventBus) {
	if n := bus.GetDroppedEventCount(); n > 0 {
		logger.Warn().Int64("dropped_events", n).Msg("Progress display missed events, see the summary for final results")
	}
}

// uploaderDeps are the collaborators the commands hand to buildUploader.
type uploaderDeps struct {
	bus     *events.EventBus
	picker  upload.Picker
	logger  *logging.Logger
	metrics *metrics.Metrics
	drag    bool // files arrive on the uploader's drop surface
}

// buildUploader turns a validated config into an Uploader with a proxy-aware
// HTTP transport and, when an S3 bucket is set, a presigned POST target.
func buildUploader(ctx context.Context, cfg *config.Config, deps uploaderDeps) (*upload.Uploader, error) {
	if httpclient.NeedsProxyPassword(cfg) {
		password, err := promptProxyPassword(cfg.ProxyUser)
		if err != nil {
			return nil, err
		}
		cfg.ProxyPassword = password
	}

	client, err := httpclient.NewUploadClient(cfg, deps.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	jar, err := httpclient.NewCookieJar()
	if err != nil {
		return nil, err
	}

	opts := []upload.Option{
		upload.WithTransport(upload.NewHTTPTransport(client, jar)),
		upload.WithEventBus(deps.bus),
		upload.WithLogger(deps.logger),
		upload.WithMetrics(deps.metrics),
	}
	if deps.picker != nil {
		opts = append(opts, upload.WithPicker(deps.picker))
	}

	if cfg.S3Bucket != "" {
		target, err := s3post.New(ctx, s3post.Options{
			Bucket:     cfg.S3Bucket,
			Prefix:     cfg.S3Prefix,
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			Expires:    cfg.S3Expires,
			HTTPClient: client,

			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			SessionToken:    cfg.S3SessionToken,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, upload.WithTarget(target))
	}

	return upload.New(upload.Config{
		Action:          cfg.Action,
		Name:            cfg.FieldName,
		Headers:         cfg.Headers,
		Data:            cfg.Data,
		WithCredentials: cfg.WithCredentials,
		Accept:          cfg.Accept,
		Multiple:        cfg.Multiple,
		Drag:            deps.drag,
		BeforeUpload:    beforeUploadCheck(cfg),
	}, opts...)
}
