package fetch

import (
	"net/url"
	"strings"
)

// Platform names an applicant tracking system whose posting pages have a known
// layout.
type Platform string

// Recognized platforms.
const (
	PlatformGreenhouse      Platform = "greenhouse"
	PlatformLever           Platform = "lever"
	PlatformWorkday         Platform = "workday"
	PlatformAshby           Platform = "ashby"
	PlatformSmartRecruiters Platform = "smartrecruiters"
	PlatformUnknown         Platform = "unknown"
)

// Page tells the extractor where a posting's description lives. Content
// selectors are tried in order and the first match wins; Noise selectors are
// removed before that.
type Page struct {
	Content []string
	Noise   []string
	// ClientRendered marks boards whose HTML is an empty shell until scripts run.
	ClientRendered bool
}

type board struct {
	platform Platform
	hosts    []string
	page     Page
}

var boards = []board{
	{
		platform: PlatformGreenhouse,
		hosts:    []string{"greenhouse.io"},
		page: Page{
			Content: []string{".job__description.body", ".job__description", ".job-description__content", ".job-post-container"},
			Noise:   []string{".application--wrapper", ".voluntary-self-id", ".voluntary-self-id-wrapper", "#usa_self_id_section", ".post-apply"},
		},
	},
	{
		platform: PlatformLever,
		hosts:    []string{"lever.co"},
		page: Page{
			Content: []string{".posting-page", ".section-wrapper.page-full-width", ".posting-description"},
			Noise:   []string{".apply-section", ".lever-application-form", ".posting-apply"},
		},
	},
	{
		platform: PlatformWorkday,
		hosts:    []string{"workday.com", "myworkdayjobs.com"},
		page: Page{
			Content:        []string{"[data-automation-id='jobDescription']"},
			Noise:          []string{"[data-automation-id='applyButton']", ".application-section"},
			ClientRendered: true,
		},
	},
	{
		platform: PlatformAshby,
		hosts:    []string{"ashbyhq.com"},
		page: Page{
			Content:        []string{"[class*='_descriptionText']", "._description"},
			Noise:          []string{"[class*='_applicationForm']"},
			ClientRendered: true,
		},
	},
	{
		platform: PlatformSmartRecruiters,
		hosts:    []string{"smartrecruiters.com"},
		page: Page{
			Content: []string{".job-sections", "[itemprop='description']"},
			Noise:   []string{".job-apply", ".st-apply-button"},
		},
	},
}

// genericPage applies to every posting. Board-specific selectors go in front
// of its content selectors and are added to its noise.
var genericPage = Page{
	Content: []string{
		".job-description", "#job-description",
		".job-content", "#job-content",
		".posting-content", ".job-details",
		"[data-testid='job-description']",
		"main", "article", ".content", "#content",
	},
	Noise: []string{
		"form", "#application-form", ".application-form", ".apply-button-container",
		"[data-testid='application-form']",
		".voluntary-disclosure", ".eeo-statement", ".eeo-section", "[data-testid='eeo']",
		".legal-disclosure", ".social-share", ".share-buttons",
		".cookie-consent", ".gdpr-notice",
	},
}

// DetectPlatform matches the URL's host, or a parent domain of it, against the
// known boards.
func DetectPlatform(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(u.Hostname())
	for _, b := range boards {
		for _, h := range b.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return b.platform
			}
		}
	}
	return PlatformUnknown
}

// PageFor returns the selectors for platform merged with the generic ones. The
// slices are fresh copies.
func PageFor(platform Platform) Page {
	page := Page{
		Content: append([]string(nil), genericPage.Content...),
		Noise:   append([]string(nil), genericPage.Noise...),
	}
	for _, b := range boards {
		if b.platform != platform {
			continue
		}
		page.Content = append(append([]string(nil), b.page.Content...), page.Content...)
		page.Noise = append(page.Noise, b.page.Noise...)
		page.ClientRendered = b.page.ClientRendered
	}
	return page
}
