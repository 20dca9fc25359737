// Package docubot asks an LLM to write NumPy-style docstrings for a Python file and returns the documented source.
//
// Use GenerateDocumentation to document a file. In prompt.ModeRewrite the model replies with the whole file, which is returned as-is (minus any markdown fence). In
// prompt.ModeInject the model calls the generate_one_docstring tool once per symbol, and the docstrings are inserted into the original source with
// updatedocs.InsertDocstrings, so nothing but docstrings can change. Inject mode returns ErrNoToolCalls or ErrNoDocstrings when the model gave nothing usable.
//
// Use EstimateCost before generating to show the user what the request will cost. It counts tokens of the exact payload GenerateDocumentation sends.
package docubot
