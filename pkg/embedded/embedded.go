package embedded

import (
	_ "embed"
)

// Embed all prompt and vocabulary data files
//
//go:embed data/system_prompt.txt
var SystemPromptTxt []byte

//go:embed data/output_contract.txt
var OutputContractTxt []byte

//go:embed data/few_shot_examples.json
var FewShotExamplesJSON []byte

//go:embed data/vocabulary.yaml
var VocabularyYAML []byte

//go:embed data/analyze_beats.py
var AnalyzeBeatsPy []byte
