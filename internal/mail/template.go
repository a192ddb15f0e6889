package mail

import (
	"fmt"
	"strings"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html" //nolint:revive

	"github.com/guaupro/landing/internal/model"
)

var featureLabels = map[string]string{
	model.FeatureUpdates:   "Product updates",
	model.FeatureGuauApp:   "Guau app for pet owners",
	model.FeatureTeam:      "Team management",
	model.FeatureBilling:   "Billing and invoicing",
	model.FeatureQRCheckin: "QR check-in",
}

func featureLabel(f string) string {
	if label, ok := featureLabels[f]; ok {
		return label
	}
	return f
}

func firstName(fullName string) string {
	if fields := strings.Fields(fullName); len(fields) > 0 {
		return fields[0]
	}
	return fullName
}

func renderWelcomeHTML(lead *model.Lead) (string, error) {
	var b strings.Builder
	if err := welcomePage(lead).Render(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func welcomePage(lead *model.Lead) g.Node {
	return Doctype(
		HTML(
			Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				TitleEl(g.Text("Welcome to Guau Pro")),
			),
			Body(
				Style("font-family:sans-serif;color:#1F2937;"),
				H1(g.Textf("Hi %s, you're on the list!", firstName(lead.FullName))),
				P(g.Text("Thanks for joining the Guau Pro waitlist. We'll write to you as soon as your spot opens up.")),
				g.If(len(lead.Features) > 0,
					g.Group{
						P(g.Text("You told us you're most interested in:")),
						Ul(g.Map(lead.Features, func(f string) g.Node {
							return Li(g.Text(featureLabel(f)))
						})...),
					},
				),
				P(Style("color:#939CAE;font-size:12px;"),
					g.Text("You received this email because you signed up at guau.pro."),
				),
			),
		),
	)
}

func renderWelcomeText(lead *model.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, you're on the list!\n\n", firstName(lead.FullName))
	b.WriteString("Thanks for joining the Guau Pro waitlist. We'll write to you as soon as your spot opens up.\n")
	if len(lead.Features) > 0 {
		b.WriteString("\nYou told us you're most interested in:\n")
		for _, f := range lead.Features {
			fmt.Fprintf(&b, "  - %s\n", featureLabel(f))
		}
	}
	return b.String()
}
