package ollama

import (
	"encoding/json"
	"fmt"
	"strings"
)

func buildDDIPrompt(drugs string, dataset json.RawMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Drug list from prescription: %s.\n", drugs)
	fmt.Fprintf(&b, "Drug-Drug Interaction dataset:\n%s\n\n", dataset)
	b.WriteString("IMPORTANT: Analyze the drug interactions ONLY based on the drugs provided in the prescription drug list.\n")
	b.WriteString("Provide a summary of any severe interactions, and provide alternative medications if applicable.")
	return b.String()
}

func buildRiskProfilePrompt(drugs []string, analysis string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient's combined medications from past prescriptions: %s\n", strings.Join(drugs, ", "))
	fmt.Fprintf(&b, "Drug-Drug Interaction Analysis of combined medications: %s\n", analysis)
	b.WriteString("Generate a patient risk profile focusing on potential drug-drug interaction side effects, ")
	b.WriteString("considering all the patient's past prescriptions. Provide a summary of the most significant risks.")
	return b.String()
}
