package ark

var ClassifyError = classifyError
