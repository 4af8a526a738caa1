package tagdetect

import "regexp"

// Detection patterns for Google Tag Manager and Google Ads instrumentation.
// All matching is done case-insensitively against the page HTML.
var (
	gtmPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)googletagmanager\.com/gtm\.js\?id=(gtm-[a-z0-9]+)`),
		regexp.MustCompile(`(?i)googletagmanager\.com/ns\.html\?id=(gtm-[a-z0-9]+)`),
	}

	adsConfigPattern = regexp.MustCompile(`(?i)gtag\(['"]config['"],\s*['"]+(aw-\d+)['"]`)
	adsGtagPattern   = regexp.MustCompile(`(?i)googletagmanager\.com/gtag/js\?id=(aw-\d+)`)
	adsLegacyPattern = regexp.MustCompile(`google_conversion_id`)

	conversionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)gtag\(['"]event['"],\s*['"]conversion['"]`),
		regexp.MustCompile(`(?i)gtag\(['"]event['"],\s*['"]page_view['"].*send_to.*aw-`),
		regexp.MustCompile(`(?i)google_trackconversion`),
	}

	remarketingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)google_tag_params`),
		regexp.MustCompile(`(?i)google_remarketing_only\s*=\s*true`),
	}
)
