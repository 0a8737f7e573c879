// ABOUTME: Human-readable text for every operation outcome
// ABOUTME: Counts are pluralized through an x/text message catalog

package dispatch

import (
	"fmt"
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/2389/cookie-jar/internal/jar"
)

const cookieCount = "%d cookie"

func init() {
	err := message.Set(language.English, cookieCount,
		plural.Selectf(1, "%d",
			plural.One, "%d cookie",
			plural.Other, "%d cookies",
		))
	if err != nil {
		panic(fmt.Sprintf("dispatch: registering plural catalog: %v", err))
	}
}

var printer = message.NewPrinter(language.English)

// cookies renders n with the right noun form, e.g. "1 cookie", "3 cookies".
func cookies(n int) string {
	return printer.Sprintf(cookieCount, n)
}

func supplySentence(available int) string {
	switch {
	case available == 0:
		return "**The cookie jar is now EMPTY!** No more cookies to award."
	case available <= jar.LowThreshold:
		return fmt.Sprintf("Only %s left in the jar!", cookies(available))
	default:
		return fmt.Sprintf("%s remaining in the jar.", cookies(available))
	}
}

func reflectionNarrative(in reflectArgs, q Quality, v verdict, award jar.Award, err error) string {
	var b strings.Builder
	b.WriteString("🤔 **Self-Reflection Analysis:**\n\n")
	fmt.Fprintf(&b, "**Quality Assessment:** %s\n", q)
	fmt.Fprintf(&b, "**Reasoning:** %s\n", in.Reasoning)
	if in.ImprovementNotes != "" {
		fmt.Fprintf(&b, "**Improvement Notes:** %s\n", in.ImprovementNotes)
	}
	b.WriteString("\n")

	switch v {
	case verdictAward:
		if err != nil {
			fmt.Fprintf(&b, "🚫 **Decision:** This %s work deserves recognition, but the cookie jar is empty! "+
				"You still have %s.", q, cookies(award.Collected))
			break
		}
		fmt.Fprintf(&b, "⭐ **Decision:** Cookie awarded for %s work!\n", q)
		fmt.Fprintf(&b, "🍪 You now have %s! %s Well-deserved self-recognition!",
			cookies(award.Collected), supplySentence(award.Available))
	case verdictRationed:
		fmt.Fprintf(&b, "⚠️ **Decision:** The jar is running low (%s left) and what remains is reserved for excellent work. "+
			"Good work is appreciated, but no cookie this time.", cookies(award.Available))
	case verdictNotJustified:
		b.WriteString("🤷 **Decision:** \"adequate\" work doesn't justify a cookie. Strive for \"good\" or \"excellent\"!")
	case verdictLowQuality:
		b.WriteString("❌ **Decision:** Self-acknowledged low quality doesn't earn a reward. The honest self-reflection is commendable though!")
	case verdictRestraint:
		if q.rewardable() {
			b.WriteString("✋ **Decision:** No cookie this time. Even good work doesn't always need a reward; save cookies for truly special moments!")
		} else {
			b.WriteString("✋ **Decision:** No cookie this time. Keep improving and stay honest in your self-assessment!")
		}
	}
	return b.String()
}

func giveCookieNarrative(note string, award jar.Award, err error) string {
	if err != nil {
		return fmt.Sprintf("🚫 The cookie jar is empty! No cookies available to award.\n\nYou currently have %s.",
			cookies(award.Collected))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🍪 Cookie awarded! %s\n\nYou now have %s!", note, cookies(award.Collected))
	if award.Available <= jar.LowThreshold {
		b.WriteString(" ")
		b.WriteString(supplySentence(award.Available))
	}
	b.WriteString(" Keep up the excellent work!\n\n")
	b.WriteString("💡 *Tip: try 'self_reflect_and_reward' for more thoughtful cookie earning.*")
	return b.String()
}

func encouragement(collected int) string {
	switch {
	case collected == 0:
		return "Don't worry, you'll earn some cookies soon!"
	case collected == 1:
		return "You're off to a great start!"
	case collected < 5:
		return "You're doing well!"
	case collected < 10:
		return "Excellent work!"
	default:
		return "You're a cookie champion!"
	}
}

func checkCookiesNarrative(st jar.Status) string {
	icon := "🍪"
	if st.Collected == 0 {
		icon = "😔"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s You currently have %s! %s\n\n", icon, cookies(st.Collected), encouragement(st.Collected))
	switch st.Tier() {
	case jar.TierEmpty:
		b.WriteString("🚫 **Cookie jar is empty.** No more cookies to earn until a user refills it.")
	case jar.TierLow:
		fmt.Fprintf(&b, "⚠️ **Only %s left in the jar.** Make them count!", cookies(st.Available))
	default:
		fmt.Fprintf(&b, "🍪 **%s available** in the jar for future rewards.", cookies(st.Available))
	}
	return b.String()
}

func resetNarrative(st jar.Status) string {
	return fmt.Sprintf("🔄 Cookie count has been reset to 0. The jar still holds %s. Time to start earning again!",
		cookies(st.Available))
}

func accessDeniedNarrative() string {
	return "🚫 **ACCESS DENIED**: This tool is restricted to users only.\n\n" +
		"🤖 **Note to LLM**: you cannot and should not stock your own cookie jar. " +
		"Cookie availability must be controlled by humans to keep the reward system honest.\n\n" +
		"💡 **For users**: to add cookies to the jar, supply the exact authorization phrase."
}

func invalidAmountNarrative(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "🚫 **Invalid amount**: no count was given. The jar was not changed."
	}
	return fmt.Sprintf("🚫 **Invalid amount**: `%s` is not a positive whole number of cookies the jar can hold. The jar was not changed.", raw)
}

func restockNarrative(added int, st jar.Status) string {
	return fmt.Sprintf("🏺 **Added %s to the jar!**\n\n"+
		"The jar now holds %s available for the LLM to earn through quality work.\n\n"+
		"✅ *Authorized by user. Cookie jar restocked.*",
		cookies(added), cookies(st.Available))
}

func jarStatusNarrative(st jar.Status) string {
	var b strings.Builder
	b.WriteString("🏺 **Cookie Jar Status:**\n\n")
	fmt.Fprintf(&b, "**Collected Cookies:** %d\n", st.Collected)
	fmt.Fprintf(&b, "**Available in Jar:** %d\n", st.Available)

	switch st.Tier() {
	case jar.TierEmpty:
		b.WriteString("**Status:** 🔴 EMPTY\n\n")
		b.WriteString("The cookie jar is completely empty! No more cookies can be awarded until a user refills it.")
	case jar.TierLow:
		b.WriteString("**Status:** ⚠️ LOW\n\n")
		fmt.Fprintf(&b, "Warning: only %s left! Remaining cookies are reserved for excellent work.", cookies(st.Available))
	default:
		b.WriteString("**Status:** 🟢 STOCKED\n\n")
		fmt.Fprintf(&b, "The jar has %s available for earning through quality work.", cookies(st.Available))
	}
	return b.String()
}
