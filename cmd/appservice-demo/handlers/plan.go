// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package handlers

import (
	"fmt"
	"io"
	"strings"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/appservice"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
)

const placeholderSubscription = "00000000-0000-0000-0000-000000000000"

// Plan prints the steps a run would execute, in order, without contacting Azure.
func Plan(out io.Writer, settings appservice.Settings) error {
	settings.SubscriptionID = placeholderSubscription
	if sub, ok := lookupEnv(config.EnvSubscriptionID); ok && sub != "" {
		settings.SubscriptionID = sub
	}

	plan, err := appservice.BuildPlan(settings)
	if err != nil {
		return err
	}
	order, err := plan.TopologicalOrder()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d step(s):\n", len(order))
	for i, name := range order {
		step, _ := plan.Step(name)
		line := fmt.Sprintf("%2d. %s (%s)", i+1, name, step.Spec.Kind)
		if len(step.DependsOn) > 0 {
			line += " <- " + strings.Join(step.DependsOn, ", ")
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
